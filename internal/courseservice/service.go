// Package courseservice coordinates the course library, its index, linked
// document fetching and rendering.
package courseservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/gloss/internal/apperr"
	"github.com/starford/gloss/internal/checksum"
	"github.com/starford/gloss/internal/curriculum"
	"github.com/starford/gloss/internal/fetch"
	"github.com/starford/gloss/internal/index"
	"github.com/starford/gloss/internal/material"
	"github.com/starford/gloss/internal/models"
	"github.com/starford/gloss/internal/render"
	"github.com/starford/gloss/internal/storage"
)

// MaterialSummary describes one material of a course without its content.
type MaterialSummary struct {
	Week   int           `json:"week"`
	Index  int           `json:"index"`
	Kind   material.Kind `json:"kind"`
	Title  string        `json:"title"`
	Linked bool          `json:"linked,omitempty"`
}

// CourseDetail is the full representation of a course.
type CourseDetail struct {
	models.Course
	Materials []MaterialSummary `json:"materials"`
}

// CourseListItem is a lightweight item in a list response.
type CourseListItem struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Level       string    `json:"level,omitempty"`
	Checksum    string    `json:"checksum"`
	Kinds       []string  `json:"kinds"`
	Weeks       int       `json:"weeks"`
	Materials   int       `json:"materials"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service coordinates storage, index, fetch and render operations.
type Service struct {
	store    storage.Provider
	db       index.CourseIndex
	fetcher  *fetch.Client
	renderer *render.Renderer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher sets the client used for linked documents.
func WithFetcher(c *fetch.Client) Option {
	return func(s *Service) { s.fetcher = c }
}

// WithRenderer sets the document renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new course service.
func NewService(store storage.Provider, db index.CourseIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db}
	for _, o := range opts {
		o(s)
	}
	if s.fetcher == nil {
		s.fetcher = fetch.New()
	}
	if s.renderer == nil {
		s.renderer = render.NewRenderer()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// validPath checks that p names a course file inside the library.
func validPath(p string) error {
	if p == "" || !strings.HasSuffix(p, storage.CourseExt) || strings.HasPrefix(path.Base(p), ".") {
		return fmt.Errorf("course path %q must end with %s: %w", p, storage.CourseExt, apperr.ErrInvalidInput)
	}
	return nil
}

// GetCourse reads a course from storage and loads its curriculum, reusing
// the cached loader result when the file is unchanged.
func (s *Service) GetCourse(_ context.Context, p string) (*CourseDetail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	c := index.LoadCourse(s.db, p, data)
	if row, err := s.db.GetCourse(p); err == nil {
		c.UpdatedAt = row.UpdatedAt
	}
	return s.buildDetail(c), nil
}

// CreateCourse writes a new course file and indexes it.
func (s *Service) CreateCourse(_ context.Context, p string, content []byte) (*CourseDetail, error) {
	if err := validPath(p); err != nil {
		return nil, err
	}
	if s.store.Exists(p) {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	return s.index(p, content)
}

// UpdateCourse writes updated content with optimistic concurrency. An
// empty ifMatch skips the check.
func (s *Service) UpdateCourse(_ context.Context, p string, content []byte, ifMatch string) (*CourseDetail, error) {
	existing, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	return s.index(p, content)
}

// DeleteCourse removes a course from storage and index.
func (s *Service) DeleteCourse(_ context.Context, p string) error {
	if err := s.store.Delete(p); err != nil {
		return err
	}
	return s.db.DeleteCourse(p)
}

// ListCourses returns paginated courses. kind accepts any spelling the
// classifier accepts ("words", "questions", ...).
func (s *Service) ListCourses(_ context.Context, limit, offset int, kind, sort string) ([]CourseListItem, int, error) {
	if kind != "" {
		k, ok := material.ParseKind(kind)
		if !ok {
			return nil, 0, fmt.Errorf("kind %q: %w", kind, apperr.ErrInvalidInput)
		}
		kind = string(k)
	}
	rows, total, err := s.db.ListCourses(limit, offset, kind, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]CourseListItem, len(rows))
	for i, r := range rows {
		items[i] = CourseListItem{
			Path:        r.Path,
			Title:       r.Title,
			Description: r.Description,
			Level:       r.Level,
			Checksum:    r.Checksum,
			Kinds:       nonNilSlice(r.Kinds),
			Weeks:       r.Weeks,
			Materials:   r.Materials,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Material returns the built document for one material of a course. A
// material that only links to an external document is fetched and
// parsed; if that fails the failure is logged and ErrNotFound returned.
func (s *Service) Material(ctx context.Context, p string, week, idx int) (material.Document, error) {
	c, err := s.GetCourse(ctx, p)
	if err != nil {
		return nil, err
	}
	w, ok := curriculum.Find(c.Weeks, week)
	if !ok {
		return nil, fmt.Errorf("week %d of %s: %w", week, p, apperr.ErrNotFound)
	}
	raw, ok := w.Material(idx)
	if !ok {
		return nil, fmt.Errorf("material %d of week %d: %w", idx, week, apperr.ErrNotFound)
	}
	if isLinked(raw) {
		raw, err = s.resolve(ctx, raw)
		if err != nil {
			return nil, err
		}
	}
	return material.Build(raw), nil
}

// Resolve fetches a linked material and returns the built document.
// Materials with their own content are built as they are.
func (s *Service) Resolve(ctx context.Context, raw material.RawMaterial) (material.Document, error) {
	if isLinked(raw) {
		var err error
		if raw, err = s.resolve(ctx, raw); err != nil {
			return nil, err
		}
	}
	return material.Build(raw), nil
}

func (s *Service) resolve(ctx context.Context, raw material.RawMaterial) (material.RawMaterial, error) {
	doc, err := s.fetcher.Fetch(ctx, raw.URL)
	if err != nil {
		s.logger.Warn("material: linked document unavailable",
			slog.String("url", raw.URL),
			slog.String("error", err.Error()))
		return material.RawMaterial{}, fmt.Errorf("linked document %s: %w", raw.URL, apperr.ErrNotFound)
	}
	linked := curriculum.ParseMaterial(string(doc.Body))
	if linked.Title == "" {
		linked.Title = raw.Title
	}
	if linked.Type == "" {
		linked.Type = raw.Type
	}
	if linked.ID == "" {
		linked.ID = raw.ID
	}
	return linked, nil
}

// Render produces doc in the requested target format.
func (s *Service) Render(ctx context.Context, doc material.Document, target render.Target, state render.ViewState) (render.Output, error) {
	return s.renderer.Render(ctx, doc, target, state)
}

// RenderMaterial loads one material of a course and renders it.
func (s *Service) RenderMaterial(ctx context.Context, p string, week, idx int, target render.Target, state render.ViewState) (render.Output, error) {
	doc, err := s.Material(ctx, p, week, idx)
	if err != nil {
		return render.Output{}, err
	}
	return s.Render(ctx, doc, target, state)
}

// IndexFile parses data and upserts it into the index.
// Exported so that sync and watcher can reuse it.
func (s *Service) IndexFile(p string, data []byte) error {
	_, err := s.index(p, data)
	return err
}

func (s *Service) index(p string, data []byte) (*CourseDetail, error) {
	c, err := index.IndexFile(s.db, p, data)
	if err != nil {
		return nil, err
	}
	if c.Repaired || c.Fallback || c.Legacy {
		s.logger.Warn("course: curriculum recovered",
			slog.String("path", p),
			slog.Bool("repaired", c.Repaired),
			slog.Bool("fallback", c.Fallback),
			slog.Bool("legacy", c.Legacy))
	}
	return s.buildDetail(c), nil
}

func (s *Service) buildDetail(c models.Course) *CourseDetail {
	d := &CourseDetail{Course: c, Materials: []MaterialSummary{}}
	for _, w := range c.Weeks {
		for i, m := range w.AnalysisMaterials {
			d.Materials = append(d.Materials, MaterialSummary{
				Week:   w.Week,
				Index:  i,
				Kind:   material.Classify(m),
				Title:  m.Title,
				Linked: isLinked(m),
			})
		}
	}
	return d
}

// isLinked reports whether m only points at an external document.
func isLinked(m material.RawMaterial) bool {
	return m.URL != "" && len(m.Sentences) == 0 && len(m.Content) == 0 &&
		len(m.Vocabulary) == 0 && len(m.Questions) == 0 && m.Structure.Empty()
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
