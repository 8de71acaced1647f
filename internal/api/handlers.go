package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/gloss/internal/checksum"
	"github.com/starford/gloss/internal/courseservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *courseservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *courseservice.Service) *Handler {
	return &Handler{svc: svc}
}

// coursePath extracts the course path from the URL (everything after /api/courses/).
// Supports encoded slashes from OpenAPI clients (e.g. grammar%2Fbasics.json).
func coursePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// decodeBody reads a JSON request body into v and runs its validation.
// It writes the error response and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(validationMessage(err)))
		return false
	}
	return true
}

// ListCourses handles GET /api/courses.
//
//	@Summary		List courses with optional pagination and filtering
//	@Tags			courses
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			kind	query		string	false	"Filter by material kind"	Enums(analysis, workbook, word, variant)
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, path, weeks)
//	@Success		200		{object}	CourseListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses [get]
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListCourses(r.Context(), limit, offset, q.Get("kind"), q.Get("sort"))
	if err != nil {
		writeError(w, "list courses", err)
		return
	}
	writeJSON(w, http.StatusOK, CourseListResponse{Courses: items, Total: total})
}

// GetCourse handles GET /api/courses/*.
//
//	@Summary		Get a single course by path
//	@Tags			courses
//	@Produce		json
//	@Param			path	path		string	true	"Course path"
//	@Success		200		{object}	CourseDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{path} [get]
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	path := coursePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	course, err := h.svc.GetCourse(r.Context(), path)
	if err != nil {
		writeError(w, "get course", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(course.Checksum))
	writeJSON(w, http.StatusOK, course)
}

// CreateCourse handles POST /api/courses.
//
//	@Summary		Create a new course
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateCourseRequest	true	"Course to create"
//	@Success		201		{object}	CourseDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses [post]
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	course, err := h.svc.CreateCourse(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create course", err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// UpdateCourse handles PUT /api/courses/*.
//
//	@Summary		Update a course with optimistic concurrency
//	@Tags			courses
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Course path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateCourseRequest	true	"Updated content"
//	@Success		200		{object}	CourseDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{path} [put]
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	path := coursePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateCourseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))

	course, err := h.svc.UpdateCourse(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, "update course", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// DeleteCourse handles DELETE /api/courses/*.
//
//	@Summary		Delete a course
//	@Tags			courses
//	@Param			path	path	string	true	"Course path"
//	@Success		204		"Course deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/{path} [delete]
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	path := coursePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteCourse(r.Context(), path); err != nil {
		writeError(w, "delete course", err, slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across courses
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	resp := SearchResponse{Results: make([]SearchResult, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, SearchResult{Path: res.Path, Title: res.Title, Snippet: res.Snippet})
	}
	writeJSON(w, http.StatusOK, resp)
}
