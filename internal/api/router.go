package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/gloss/internal/courseservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *courseservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Courses CRUD.
	r.Get("/courses", h.ListCourses)
	r.Post("/courses", h.CreateCourse)
	r.Post("/courses/upload", h.UploadCourse)
	r.Get("/courses/*", h.GetCourse)
	r.Put("/courses/*", h.UpdateCourse)
	r.Delete("/courses/*", h.DeleteCourse)

	// Search.
	r.Get("/search", h.Search)

	// Rendering of stored materials.
	r.Get("/render", h.RenderCourseMaterial)

	// Stateless tools.
	r.Post("/markup/tokenize", h.Tokenize)
	r.Post("/materials/classify", h.Classify)
	r.Post("/materials/render", h.RenderMaterial)
	r.Post("/curriculum/load", h.LoadCurriculum)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
