// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/recipebox/internal/api"
	"github.com/starford/recipebox/internal/layout"
	"github.com/starford/recipebox/internal/mcpserver"
	"github.com/starford/recipebox/internal/recipestore"
	"github.com/starford/recipebox/internal/siteservice"
	"github.com/starford/recipebox/internal/sse"
	"github.com/starford/recipebox/internal/templates"
	"github.com/starford/recipebox/internal/watch"
)

// ErrProblemsFound is returned by Check when recipe files failed to load.
var ErrProblemsFound = errors.New("recipe problems found")

// components is the wired domain layer shared by every entry point.
type components struct {
	store    *recipestore.Store
	registry *templates.Registry
	svc      *siteservice.Service
}

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

func build(ctx context.Context, cfg *Config, logger *slog.Logger, notifier siteservice.Notifier) (*components, error) {
	store := recipestore.New(logger, recipestore.WithConcurrency(cfg.Recipes.Concurrency))

	// Run initial scan. A missing directory leaves the store empty.
	if _, err := store.Scan(ctx, cfg.Recipes.Path); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}

	registry, err := templates.NewRegistry(cfg.Layouts.OverridesPath, logger)
	if err != nil {
		return nil, fmt.Errorf("init layouts: %w", err)
	}
	editor, err := layout.NewEditor(cfg.Layouts.OverridesPath, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("init layout editor: %w", err)
	}

	return &components{
		store:    store,
		registry: registry,
		svc:      siteservice.NewService(store, registry, editor, notifier),
	}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("recipes_path", cfg.Recipes.Path),
		slog.String("overrides_path", cfg.Layouts.OverridesPath),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure recipes directory exists.
	if err := os.MkdirAll(cfg.Recipes.Path, 0o755); err != nil {
		return fmt.Errorf("create recipes dir: %w", err)
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	c, err := build(ctx, cfg, logger, broker)
	if err != nil {
		return err
	}

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
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","recipes":%d}`, c.store.Snapshot().Len())
	})

	// Pages at the root, API routes under /api.
	r.Mount("/", api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callbacks.
	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := watch.Watch(gCtx, watch.Options{
				RecipesDir: cfg.Recipes.Path,
				LayoutsDir: cfg.Layouts.OverridesPath,
				Debounce:   cfg.Watch.Debounce,
				Logger:     logger,
				OnRecipes: func(ctx context.Context) {
					if _, err := c.svc.Rescan(ctx); err != nil && ctx.Err() == nil {
						logger.Warn("rescan failed", slog.String("error", err.Error()))
					}
				},
				OnLayout: func(slot templates.Slot) {
					c.registry.Invalidate(slot)
					broker.LayoutChanged(slot.String(), false)
				},
			})
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Check scans the recipes directory once and writes one line per problem
// to out. It returns ErrProblemsFound when any file was excluded.
func Check(ctx context.Context, out io.Writer, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store := recipestore.New(logger, recipestore.WithConcurrency(cfg.Recipes.Concurrency))
	res, err := store.Scan(ctx, cfg.Recipes.Path)
	if err != nil {
		return err
	}

	for _, f := range siteservice.Failures(res.Failures) {
		switch {
		case f.Field != "":
			fmt.Fprintf(out, "%s: %s: %s\n", f.Path, f.Field, f.Message)
		default:
			fmt.Fprintf(out, "%s: %s\n", f.Path, f.Message)
		}
	}
	for _, slot := range templates.Slots() {
		if err := checkOverride(cfg.Layouts.OverridesPath, slot); err != nil {
			fmt.Fprintf(out, "%s: %s\n", slot.FileName(), err)
			res.Failures = append(res.Failures, err)
		}
	}
	fmt.Fprintf(out, "%d recipes indexed, %d problems\n", res.Indexed, len(res.Failures))

	if len(res.Failures) > 0 {
		return fmt.Errorf("%w: %d", ErrProblemsFound, len(res.Failures))
	}
	return nil
}

func checkOverride(dir string, slot templates.Slot) error {
	data, err := os.ReadFile(filepath.Join(dir, slot.FileName()))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return templates.Validate(string(data))
}

// ServeMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs must not go to stdout in this mode; pass WithLogOutput(os.Stderr).
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}

	c, err := build(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(c.svc, app.version).ServeStdio()
}
