package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gloss/internal/courseservice"
	"github.com/starford/gloss/internal/curriculum"
	"github.com/starford/gloss/internal/markup"
	"github.com/starford/gloss/internal/material"
	"github.com/starford/gloss/internal/render"
)

// Document is a request field that carries either JSON text in a string
// or a JSON value. Both are kept as text for the tolerant loaders.
type Document string

// UnmarshalJSON keeps a string as its content and any other value as its
// raw JSON text.
func (d *Document) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = Document(s)
		return nil
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*d = ""
		return nil
	}
	*d = Document(trimmed)
	return nil
}

// CreateCourseRequest is the request body for creating a course.
type CreateCourseRequest struct {
	Path    string   `json:"path" example:"grammar/basics.json" validate:"required"`
	Content Document `json:"content" swaggertype:"string" example:"{\"title\":\"Basics\",\"curriculum\":[]}" validate:"required"`
}

// Validate checks the request fields.
func (r CreateCourseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.Content, validation.Required),
	)
}

// UpdateCourseRequest is the request body for updating a course.
type UpdateCourseRequest struct {
	Content Document `json:"content" swaggertype:"string" validate:"required"`
}

// Validate checks the request fields.
func (r UpdateCourseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

// CourseDetail is the full course response type (aliased from the domain layer).
type CourseDetail = courseservice.CourseDetail

// CourseListItem is a lightweight item in a list response (aliased from the domain layer).
type CourseListItem = courseservice.CourseListItem

// CourseListResponse wraps paginated course listings.
type CourseListResponse struct {
	Courses []CourseListItem `json:"courses" validate:"required"`
	Total   int              `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"grammar/basics.json" validate:"required"`
	Title   string `json:"title" example:"Basics" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// TokenizeRequest is the request body for tokenizing one sentence.
type TokenizeRequest struct {
	Sentence string `json:"sentence" example:"(({[He/주어] went})) home." validate:"required"`
	// IDPrefix is prepended to token IDs.
	IDPrefix string `json:"idPrefix,omitempty" example:"s1-"`
}

// Validate checks the request fields.
func (r TokenizeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Sentence, validation.Required, validation.Length(1, maxSentenceBytes)),
		validation.Field(&r.IDPrefix, validation.Length(0, 64)),
	)
}

// TokenizeResponse is the token stream of a sentence, its clause nesting
// issues, and the annotation-free text.
type TokenizeResponse struct {
	Tokens []markup.Token `json:"tokens" validate:"required"`
	Issues []markup.Issue `json:"issues" validate:"required"`
	Clean  string         `json:"clean" example:"He went home." validate:"required"`
}

// MaterialRequest carries one material, as a JSON value or JSON text.
type MaterialRequest struct {
	Material Document `json:"material" swaggertype:"string" validate:"required"`
	// View state used by the render endpoint.
	CleanView        bool  `json:"cleanView,omitempty"`
	ShowAnswers      bool  `json:"showAnswers,omitempty"`
	ShowTranslations *bool `json:"showTranslations,omitempty"`
}

// Validate checks the request fields.
func (r MaterialRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Material, validation.Required),
	)
}

// ViewState returns the requested view state; translations default to on.
func (r MaterialRequest) ViewState() render.ViewState {
	s := render.DefaultViewState().WithCleanView(r.CleanView).WithAnswers(r.ShowAnswers)
	if r.ShowTranslations != nil {
		s = s.WithTranslations(*r.ShowTranslations)
	}
	return s
}

// ClassifyResponse reports the inferred document kind.
type ClassifyResponse struct {
	Kind     material.Kind `json:"kind" example:"analysis" validate:"required"`
	Title    string        `json:"title,omitempty" example:"Lesson 1"`
	Fallback bool          `json:"fallback,omitempty"`
	Valid    bool          `json:"valid"`
	Problems string        `json:"problems,omitempty"`
}

// LoadCurriculumRequest carries a raw curriculum field.
type LoadCurriculumRequest struct {
	Curriculum Document `json:"curriculum" swaggertype:"string" validate:"required"`
}

// Validate checks the request fields.
func (r LoadCurriculumRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Curriculum, validation.Length(0, maxBodyBytes)),
	)
}

// LoadCurriculumResponse is the loader result (aliased from the domain layer).
type LoadCurriculumResponse = curriculum.Result

// UploadResponse is returned after a successful course upload.
type UploadResponse struct {
	Path   string       `json:"path" example:"basics.json" validate:"required"`
	Size   int64        `json:"size" example:"12345" validate:"required"`
	Course CourseDetail `json:"course" validate:"required"`
}

// validationMessage flattens an ozzo validation error for the response body.
func validationMessage(err error) string {
	if errs, ok := err.(validation.Errors); ok {
		return fmt.Sprintf("invalid request: %s", errs.Error())
	}
	return "invalid request: " + err.Error()
}
