// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/gloss/internal/api"
	"github.com/starford/gloss/internal/courseservice"
	"github.com/starford/gloss/internal/fetch"
	"github.com/starford/gloss/internal/index"
	"github.com/starford/gloss/internal/mcpserver"
	"github.com/starford/gloss/internal/render"
	"github.com/starford/gloss/internal/sse"
	"github.com/starford/gloss/internal/storage"
)

// Run starts the HTTP server and library watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := app.openLibrary(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := app.newService(store, db, logger)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(sse.WithCatalogThrottle(2 * time.Second))
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, cfg.Library.Path, logger, broker.PublishCourseEvent); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown stops the errgroup once the server has been shut down so the
// watcher goroutine returns too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// another output was set.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := app.logger()

	store, db, err := app.openLibrary(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := app.newService(store, db, logger)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.String("library_path", app.config.Library.Path))
	if err := mcpserver.New(svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (a *application) logger() *slog.Logger {
	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}
	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openLibrary prepares the library directory and the index, then runs the
// initial sync.
func (a *application) openLibrary(logger *slog.Logger) (*storage.FS, *index.DB, error) {
	cfg := a.config

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return store, db, nil
}

// newService wires the renderer and the linked-document fetcher into the
// course service. store and db may be nil for library-less use.
func (a *application) newService(store storage.Provider, db index.CourseIndex, logger *slog.Logger) (*courseservice.Service, error) {
	renderer, err := a.newRenderer(logger)
	if err != nil {
		return nil, err
	}
	fetcher := fetch.New(
		fetch.WithTimeout(a.config.Fetch.Timeout),
		fetch.WithMaxBytes(a.config.Fetch.MaxBytes),
	)
	return courseservice.NewService(store, db,
		courseservice.WithRenderer(renderer),
		courseservice.WithFetcher(fetcher),
		courseservice.WithLogger(logger),
	), nil
}

// newRenderer builds the renderer from the render section. A font without
// Hangul glyphs is accepted with a warning because viewer, print and word
// output do not depend on it.
func (a *application) newRenderer(logger *slog.Logger) (*render.Renderer, error) {
	rc := a.config.Render
	opts := []render.Option{render.WithScale(rc.RasterScale)}
	if rc.FontPath != "" {
		f, err := render.LoadFont(rc.FontPath)
		if err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
		opts = append(opts, render.WithFont(f))
	}
	r := render.NewRenderer(opts...)
	if !r.CoversHangul() {
		logger.Warn("render: PDF font has no Hangul glyphs, Korean text will not be drawn; set render.font_path",
			slog.String("font_path", rc.FontPath))
	}
	return r, nil
}
