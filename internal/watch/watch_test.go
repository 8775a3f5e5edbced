package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/recipebox/internal/templates"
	"github.com/starford/recipebox/internal/testutil"
)

type recorder struct {
	rescans atomic.Int32
	mu      sync.Mutex
	slots   []templates.Slot
}

func (r *recorder) layouts() []templates.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]templates.Slot(nil), r.slots...)
}

func start(t *testing.T, debounce time.Duration) (string, string, *recorder) {
	t.Helper()
	recipes := t.TempDir()
	layouts := t.TempDir()
	rec := &recorder{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, Options{
			RecipesDir: recipes,
			LayoutsDir: layouts,
			Debounce:   debounce,
			Logger:     logger,
			OnRecipes:  func(context.Context) { rec.rescans.Add(1) },
			OnLayout: func(slot templates.Slot) {
				rec.mu.Lock()
				rec.slots = append(rec.slots, slot)
				rec.mu.Unlock()
			},
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	time.Sleep(100 * time.Millisecond)
	return recipes, layouts, rec
}

func TestWatch_RecipeChangeTriggersRescan(t *testing.T) {
	recipes, _, rec := start(t, 50*time.Millisecond)

	testutil.WriteFile(t, recipes, "soup.md", testutil.Recipe("Soup"))

	testutil.Eventually(t, 5*time.Second, func() bool {
		return rec.rescans.Load() >= 1
	})
}

func TestWatch_BurstIsDebounced(t *testing.T) {
	recipes, _, rec := start(t, 300*time.Millisecond)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		testutil.WriteFile(t, recipes, name+".md", testutil.Recipe(name))
	}

	testutil.Eventually(t, 5*time.Second, func() bool {
		return rec.rescans.Load() >= 1
	})
	time.Sleep(500 * time.Millisecond)
	if n := rec.rescans.Load(); n > 2 {
		t.Errorf("rescans = %d, want the burst coalesced", n)
	}
}

func TestWatch_IgnoresNonRecipeFiles(t *testing.T) {
	recipes, _, rec := start(t, 50*time.Millisecond)

	testutil.WriteFile(t, recipes, "notes.txt", "hello")
	time.Sleep(300 * time.Millisecond)
	if n := rec.rescans.Load(); n != 0 {
		t.Errorf("rescans = %d, want 0", n)
	}
}

func TestWatch_NewSubdirectoryWatched(t *testing.T) {
	recipes, _, rec := start(t, 50*time.Millisecond)

	if err := os.MkdirAll(filepath.Join(recipes, "mains"), 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, 5*time.Second, func() bool {
		return rec.rescans.Load() >= 1
	})
	before := rec.rescans.Load()

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, recipes, "mains/stew.md", testutil.Recipe("Stew"))
	testutil.Eventually(t, 5*time.Second, func() bool {
		return rec.rescans.Load() > before
	})
}

func TestWatch_LayoutOverride(t *testing.T) {
	_, layouts, rec := start(t, 50*time.Millisecond)

	testutil.WriteFile(t, layouts, "home.html", "<p>hi</p>")
	testutil.WriteFile(t, layouts, "scratch.txt", "ignored")

	testutil.Eventually(t, 5*time.Second, func() bool {
		for _, s := range rec.layouts() {
			if s == templates.SlotHome {
				return true
			}
		}
		return false
	})
	for _, s := range rec.layouts() {
		if s != templates.SlotHome {
			t.Errorf("unexpected slot %q", s)
		}
	}
	if n := rec.rescans.Load(); n != 0 {
		t.Errorf("layout change triggered %d rescans", n)
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), Options{RecipesDir: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
