// Package watch turns filesystem changes in the recipes and layout
// directories into rescans and cache invalidations.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/recipebox/internal/templates"
)

const defaultDebounce = 300 * time.Millisecond

// Options configures Watch.
type Options struct {
	RecipesDir string
	LayoutsDir string
	// Debounce is how long the recipes directory must be quiet before
	// OnRecipes runs.
	Debounce time.Duration
	Logger   *slog.Logger

	// OnRecipes is called once per burst of recipe file changes.
	OnRecipes func(ctx context.Context)
	// OnLayout is called for every change to a slot's override file.
	OnLayout func(slot templates.Slot)
}

// Watch runs until ctx is cancelled. New subdirectories of the recipes
// directory are picked up automatically.
func Watch(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	recipesRoot, err := filepath.Abs(opts.RecipesDir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := addDirsRecursive(w, recipesRoot); err != nil {
		return fmt.Errorf("watch: recipes dir: %w", err)
	}
	var layoutsRoot string
	if opts.LayoutsDir != "" {
		if layoutsRoot, err = filepath.Abs(opts.LayoutsDir); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		if err := w.Add(layoutsRoot); err != nil {
			return fmt.Errorf("watch: layouts dir: %w", err)
		}
	}

	logger.Info("watcher: started",
		slog.String("recipes", recipesRoot),
		slog.String("layouts", layoutsRoot))

	var rescanTimer *time.Timer
	var rescanCh <-chan time.Time
	scheduleRescan := func() {
		if rescanTimer == nil {
			rescanTimer = time.NewTimer(debounce)
			rescanCh = rescanTimer.C
		} else {
			rescanTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if rescanTimer != nil {
				rescanTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-rescanCh:
			logger.Debug("watcher: recipes changed")
			if opts.OnRecipes != nil {
				opts.OnRecipes(ctx)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if layoutsRoot != "" && filepath.Dir(ev.Name) == layoutsRoot {
				slot, isLayout := templates.SlotForFile(filepath.Base(ev.Name))
				if !isLayout || ev.Op == fsnotify.Chmod {
					continue
				}
				logger.Debug("watcher: layout changed",
					slog.String("slot", string(slot)),
					slog.String("op", ev.Op.String()))
				if opts.OnLayout != nil {
					opts.OnLayout(slot)
				}
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					scheduleRescan()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") || ev.Op == fsnotify.Chmod {
				continue
			}
			scheduleRescan()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
