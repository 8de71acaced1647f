package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/gloss/internal/curriculum"
	"github.com/starford/gloss/internal/markup"
	"github.com/starford/gloss/internal/material"
	"github.com/starford/gloss/internal/render"
)

const maxSentenceBytes = 64 << 10

// queryBool reads a boolean query parameter, falling back to def when it
// is absent or malformed.
func queryBool(r *http.Request, key string, def bool) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

// RenderCourseMaterial handles GET /api/render.
//
//	@Summary		Render one material of a stored course
//	@Tags			render
//	@Produce		html
//	@Produce		application/pdf
//	@Param			course			query	string	true	"Course path"
//	@Param			week			query	int		true	"Week number"
//	@Param			material		query	int		false	"Material index within the week"
//	@Param			target			query	string	false	"Output target"	Enums(viewer, print, pdf, word)
//	@Param			clean			query	bool	false	"Hide annotations"
//	@Param			answers			query	bool	false	"Show answer keys"
//	@Param			translations	query	bool	false	"Show translations (default true)"
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [get]
func (h *Handler) RenderCourseMaterial(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	course := q.Get("course")
	if course == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'course' is required"))
		return
	}
	week, err := strconv.Atoi(q.Get("week"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'week' must be a number"))
		return
	}
	idx := 0
	if v := q.Get("material"); v != "" {
		if idx, err = strconv.Atoi(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'material' must be a number"))
			return
		}
	}
	target, err := render.ParseTarget(q.Get("target"))
	if err != nil {
		writeError(w, "render", err)
		return
	}
	state := render.DefaultViewState().
		WithCleanView(queryBool(r, "clean", false)).
		WithAnswers(queryBool(r, "answers", false)).
		WithTranslations(queryBool(r, "translations", true))

	out, err := h.svc.RenderMaterial(r.Context(), course, week, idx, target, state)
	if err != nil {
		writeError(w, "render", err, slog.String("course", course), slog.Int("week", week), slog.Int("material", idx))
		return
	}
	writeOutput(w, target, out)
}

// Tokenize handles POST /api/markup/tokenize.
//
//	@Summary		Tokenize an annotated sentence
//	@Tags			tools
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TokenizeRequest	true	"Sentence"
//	@Success		200		{object}	TokenizeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/markup/tokenize [post]
func (h *Handler) Tokenize(w http.ResponseWriter, r *http.Request) {
	var req TokenizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var opts []markup.Option
	if req.IDPrefix != "" {
		opts = append(opts, markup.WithIDPrefix(req.IDPrefix))
	}
	res := markup.Scan(req.Sentence, opts...)
	resp := TokenizeResponse{
		Tokens: nonNil(res.Tokens),
		Issues: nonNil(res.Issues),
		Clean:  markup.Strip(req.Sentence),
	}
	writeJSON(w, http.StatusOK, resp)
}

// Classify handles POST /api/materials/classify.
//
//	@Summary		Infer the document kind of a material
//	@Tags			tools
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MaterialRequest	true	"Material"
//	@Success		200		{object}	ClassifyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/materials/classify [post]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req MaterialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc := material.Build(curriculum.ParseMaterial(string(req.Material)))
	meta := doc.Header()
	resp := ClassifyResponse{
		Kind:     doc.Kind(),
		Title:    meta.Title,
		Fallback: meta.RawText != "",
		Valid:    true,
	}
	if err := doc.Validate(); err != nil {
		resp.Valid = false
		resp.Problems = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// RenderMaterial handles POST /api/materials/render.
//
//	@Summary		Render a material given in the request body
//	@Tags			render
//	@Accept			json
//	@Produce		html
//	@Produce		application/pdf
//	@Param			target	query	string			false	"Output target"	Enums(viewer, print, pdf, word)
//	@Param			body	body	MaterialRequest	true	"Material and view state"
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/materials/render [post]
func (h *Handler) RenderMaterial(w http.ResponseWriter, r *http.Request) {
	target, err := render.ParseTarget(r.URL.Query().Get("target"))
	if err != nil {
		writeError(w, "render material", err)
		return
	}
	var req MaterialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := h.svc.Resolve(r.Context(), curriculum.ParseMaterial(string(req.Material)))
	if err != nil {
		writeError(w, "render material", err)
		return
	}
	out, err := h.svc.Render(r.Context(), doc, target, req.ViewState())
	if err != nil {
		writeError(w, "render material", err, slog.String("target", string(target)))
		return
	}
	writeOutput(w, target, out)
}

// LoadCurriculum handles POST /api/curriculum/load.
//
//	@Summary		Load a curriculum field into weeks
//	@Tags			tools
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoadCurriculumRequest	true	"Curriculum field"
//	@Success		200		{object}	LoadCurriculumResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/curriculum/load [post]
func (h *Handler) LoadCurriculum(w http.ResponseWriter, r *http.Request) {
	var req LoadCurriculumRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, curriculum.Parse(string(req.Curriculum)))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
