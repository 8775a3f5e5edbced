package siteservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/layout"
	"github.com/starford/recipebox/internal/recipestore"
	"github.com/starford/recipebox/internal/templates"
	"github.com/starford/recipebox/internal/testutil"
)

type recordingNotifier struct {
	mu      sync.Mutex
	scans   []int
	layouts []string
}

func (n *recordingNotifier) RecipesScanned(indexed, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scans = append(n.scans, indexed)
}

func (n *recordingNotifier) LayoutChanged(slot string, reset bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if reset {
		slot += ":reset"
	}
	n.layouts = append(n.layouts, slot)
}

func testService(t *testing.T) (*Service, *recordingNotifier, string) {
	t.Helper()
	recipesDir, _ := testutil.TestRecipes(t)
	testutil.WriteFile(t, recipesDir, "naan.md", testutil.NaanRecipe)
	testutil.WriteFile(t, recipesDir, "tea.md", testutil.Recipe("Tea"))
	testutil.WriteFile(t, recipesDir, "broken.md", "no header\n")

	store := recipestore.New(nil)
	if _, err := store.Scan(context.Background(), recipesDir); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	layoutsDir := t.TempDir()
	registry, err := templates.NewRegistry(layoutsDir, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	editor, err := layout.NewEditor(layoutsDir, registry, nil)
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	n := &recordingNotifier{}
	return NewService(store, registry, editor, n), n, recipesDir
}

func TestListRecipes_FilterByTag(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()

	all := svc.ListRecipes(ctx, "")
	if len(all) != 2 || all[0].Title != "Pan-Grilled Garlic Naan" || all[1].Title != "Tea" {
		t.Fatalf("list = %+v", all)
	}
	if all[0].URL != "/recipes/naan" {
		t.Errorf("url = %q", all[0].URL)
	}
	bread := svc.ListRecipes(ctx, "bread")
	if len(bread) != 1 || bread[0].ID != "naan" {
		t.Errorf("bread = %+v", bread)
	}
	if none := svc.ListRecipes(ctx, "dessert"); none == nil || len(none) != 0 {
		t.Errorf("dessert = %#v, want empty non-nil", none)
	}
}

func TestFailures_NameFiles(t *testing.T) {
	svc, _, _ := testService(t)
	f := svc.Failures()
	if len(f) != 1 || f[0].Path != "broken.md" || f[0].Field != "header" {
		t.Errorf("failures = %+v", f)
	}
}

func TestAddRecipe_Notifies(t *testing.T) {
	svc, n, _ := testService(t)
	r, err := svc.AddRecipe(context.Background(), recipestore.Draft{
		Title:       "Iced Coffee",
		Ingredients: []recipestore.DraftIngredient{{Name: "coffee", Amount: "1", Unit: "c"}},
		Steps:       []string{"Pour over ice."},
	})
	if err != nil {
		t.Fatalf("AddRecipe: %v", err)
	}
	if r.ID != "iced-coffee" {
		t.Errorf("id = %q", r.ID)
	}
	if len(n.scans) != 1 || n.scans[0] != 3 {
		t.Errorf("scans = %v", n.scans)
	}
}

func TestRescan_Summary(t *testing.T) {
	svc, n, dir := testService(t)
	testutil.WriteFile(t, dir, "soup.md", testutil.Recipe("Soup"))

	sum, err := svc.Rescan(context.Background())
	if err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	if sum.Indexed != 3 || len(sum.Failures) != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(n.scans) != 1 {
		t.Errorf("scans = %v", n.scans)
	}
}

func TestSaveAndResetLayout(t *testing.T) {
	svc, n, _ := testService(t)
	ctx := context.Background()

	if _, err := svc.SaveLayout(ctx, templates.SlotHome, "{% for r in recipes %}[{{ r.title }}]{% endfor %}"); err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}
	out, err := svc.RenderHome(ctx, "")
	if err != nil {
		t.Fatalf("RenderHome: %v", err)
	}
	if out != "[Pan-Grilled Garlic Naan][Tea]" {
		t.Errorf("home = %q", out)
	}
	d, err := svc.GetLayout(ctx, templates.SlotHome)
	if err != nil || d.Origin != templates.OriginOverride {
		t.Fatalf("layout = %+v, err = %v", d, err)
	}

	if err := svc.ResetLayout(ctx, templates.SlotHome); err != nil {
		t.Fatalf("ResetLayout: %v", err)
	}
	d, _ = svc.GetLayout(ctx, templates.SlotHome)
	if d.Origin != templates.OriginDefault {
		t.Errorf("origin after reset = %q", d.Origin)
	}
	want := []string{"home", "home:reset"}
	if strings.Join(n.layouts, ",") != strings.Join(want, ",") {
		t.Errorf("layout events = %v", n.layouts)
	}
}

func TestSaveLayout_InvalidDoesNotNotify(t *testing.T) {
	svc, n, _ := testService(t)
	_, err := svc.SaveLayout(context.Background(), templates.SlotHome, "{% if %}")
	var ve *templates.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(n.layouts) != 0 {
		t.Errorf("layout events = %v", n.layouts)
	}
}

func TestRenderRecipe(t *testing.T) {
	svc, _, _ := testService(t)
	out, err := svc.RenderRecipe(context.Background(), "naan")
	if err != nil {
		t.Fatalf("RenderRecipe: %v", err)
	}
	for _, want := range []string{"Pan-Grilled Garlic Naan", "4 1/2 c", testutil.NaanSteps[11]} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if _, err := svc.RenderRecipe(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing recipe err = %v", err)
	}
}

func TestRenderRecipe_DateFilterOnUpdatedAt(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	if _, err := svc.SaveLayout(ctx, templates.SlotRecipe, `<h1>{{ recipe.title }}</h1><p>{{ recipe.updated_at|date:"2006-01-02" }}</p>`); err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}
	r, err := svc.GetRecipe(ctx, "naan")
	if err != nil {
		t.Fatal(err)
	}
	out, err := svc.RenderRecipe(ctx, "naan")
	if err != nil {
		t.Fatalf("RenderRecipe: %v", err)
	}
	want := "<h1>Pan-Grilled Garlic Naan</h1><p>" + r.ModTime.Format("2006-01-02") + "</p>"
	if out != want {
		t.Errorf("page = %q, want %q", out, want)
	}
}

func TestRenderRecipe_FailingOverrideFallsBackToDefault(t *testing.T) {
	svc, _, _ := testService(t)
	ctx := context.Background()
	// Parses fine but the date filter rejects a string at render time.
	if _, err := svc.SaveLayout(ctx, templates.SlotRecipe, `<h1 class="custom">{{ recipe.title|date:"Jan 2" }}</h1>`); err != nil {
		t.Fatalf("SaveLayout: %v", err)
	}
	out, err := svc.RenderRecipe(ctx, "naan")
	if err != nil {
		t.Fatalf("RenderRecipe: %v", err)
	}
	if strings.Contains(out, `class="custom"`) {
		t.Errorf("failing override was served: %q", out)
	}
	for _, want := range []string{"Pan-Grilled Garlic Naan", testutil.NaanSteps[0]} {
		if !strings.Contains(out, want) {
			t.Errorf("default page missing %q", want)
		}
	}
	if _, err := svc.RenderHome(ctx, ""); err != nil {
		t.Errorf("other slots should be unaffected: %v", err)
	}
}

func TestRenderDashboard_ListsFailuresAndLayouts(t *testing.T) {
	svc, _, _ := testService(t)
	out, err := svc.RenderDashboard(context.Background())
	if err != nil {
		t.Fatalf("RenderDashboard: %v", err)
	}
	for _, want := range []string{"broken.md", "Pan-Grilled Garlic Naan", "recipe"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestLayouts_AllSlots(t *testing.T) {
	svc, _, _ := testService(t)
	ls, err := svc.Layouts(context.Background())
	if err != nil {
		t.Fatalf("Layouts: %v", err)
	}
	if len(ls) != len(templates.Slots()) {
		t.Fatalf("layouts = %d", len(ls))
	}
	for _, l := range ls {
		if l.Origin != templates.OriginDefault || l.Content == "" {
			t.Errorf("layout %s = %+v", l.Slot, l)
		}
	}
}
