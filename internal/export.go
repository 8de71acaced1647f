package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/gloss/internal/apperr"
	"github.com/starford/gloss/internal/curriculum"
	"github.com/starford/gloss/internal/models"
	"github.com/starford/gloss/internal/render"
)

// ExportRequest selects one material of a course file and the output format.
type ExportRequest struct {
	Input    string
	Week     int
	Material int
	Format   string
	// Out is the output file. Empty derives the name from the material
	// title inside the current directory.
	Out string

	CleanView        bool
	ShowAnswers      bool
	HideTranslations bool
}

// Export renders one material of a course file to disk without touching the
// library or the index. It returns the written path.
func Export(ctx context.Context, req ExportRequest, opts ...Option) (string, error) {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return "", err
	}
	logger := app.logger()

	target, err := render.ParseTarget(req.Format)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(req.Input)
	if err != nil {
		return "", fmt.Errorf("read course: %w", err)
	}
	course := models.ParseCourse(filepath.Base(req.Input), data)
	if course.Repaired || course.Fallback || course.Legacy {
		logger.Warn("export: curriculum recovered",
			slog.String("input", req.Input),
			slog.Bool("repaired", course.Repaired),
			slog.Bool("fallback", course.Fallback),
			slog.Bool("legacy", course.Legacy))
	}

	week, ok := curriculum.Find(course.Weeks, req.Week)
	if !ok {
		return "", fmt.Errorf("week %d of %s: %w", req.Week, req.Input, apperr.ErrNotFound)
	}
	raw, ok := week.Material(req.Material)
	if !ok {
		return "", fmt.Errorf("material %d of week %d: %w", req.Material, req.Week, apperr.ErrNotFound)
	}

	svc, err := app.newService(nil, nil, logger)
	if err != nil {
		return "", err
	}
	doc, err := svc.Resolve(ctx, raw)
	if err != nil {
		return "", err
	}

	state := render.DefaultViewState().
		WithCleanView(req.CleanView).
		WithAnswers(req.ShowAnswers).
		WithTranslations(!req.HideTranslations)
	out, err := svc.Render(ctx, doc, target, state)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	dst := req.Out
	if dst == "" {
		dst = out.FileName
	}
	if err := os.WriteFile(dst, out.Body, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}

	logger.Info("Exported material",
		slog.String("input", req.Input),
		slog.Int("week", req.Week),
		slog.Int("material", req.Material),
		slog.String("kind", string(doc.Kind())),
		slog.String("target", string(target)),
		slog.String("out", dst),
		slog.Int("bytes", len(out.Body)))
	return dst, nil
}
