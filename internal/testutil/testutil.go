// Package testutil provides shared test helpers for recipe and layout directories.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/recipebox/internal/storage"
)

// NaanRecipe is a complete recipe file with fractional amounts and twelve steps.
const NaanRecipe = `---
title: Pan-Grilled Garlic Naan
tags:
  - bread
  - side
description: Soft flatbread cooked in a cast-iron pan.
ingredients:
  - name: warm water
    amount: 1/2
    unit: c
  - name: active dry yeast
    amount: 2 1/4
    unit: tsp
  - name: sugar
    amount: 1
    unit: tsp
  - name: all-purpose flour
    amount: 4 1/2
    unit: c
  - name: plain yogurt
    amount: 1/2
    unit: c
  - name: garlic, minced
    amount: 4
    unit: cloves
  - name: butter, melted
    amount: 3
    unit: tbsp
  - name: salt
    amount: a pinch
---
1. Stir the yeast and sugar into the warm water.
2. Let it stand until foamy, about 10 minutes.
3. Mix the flour and salt in a large bowl.
4. Add the yeast mixture and yogurt.
5. Knead into a soft, smooth dough.
6. Cover and let rise until doubled.
7. Punch down and divide into 8 balls.
8. Roll each ball into a thin oval.
9. Heat a cast-iron pan over high heat.
10. Cook each naan until bubbles form, then flip.
11. Brush with the garlic butter.
12. Serve warm.

Leftovers keep for a day wrapped in a towel.
`

// NaanSteps lists the steps of NaanRecipe in order.
var NaanSteps = []string{
	"Stir the yeast and sugar into the warm water.",
	"Let it stand until foamy, about 10 minutes.",
	"Mix the flour and salt in a large bowl.",
	"Add the yeast mixture and yogurt.",
	"Knead into a soft, smooth dough.",
	"Cover and let rise until doubled.",
	"Punch down and divide into 8 balls.",
	"Roll each ball into a thin oval.",
	"Heat a cast-iron pan over high heat.",
	"Cook each naan until bubbles form, then flip.",
	"Brush with the garlic butter.",
	"Serve warm.",
}

// TestRecipes creates a temporary recipes directory with a storage.Provider.
func TestRecipes(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fsys, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fsys
}

// WriteFile writes content to dir/rel, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// Recipe returns a minimal valid recipe file with the given title.
func Recipe(title string) string {
	return "---\ntitle: " + title + "\ningredients:\n  - name: water\n    amount: 1\n    unit: c\n---\n1. Boil.\n"
}

// Eventually polls fn until it returns true or the timeout expires.
func Eventually(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
