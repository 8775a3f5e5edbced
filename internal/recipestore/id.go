package recipestore

import (
	"path"
	"regexp"
	"strings"

	"github.com/starford/recipebox/internal/checksum"
)

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLen = 200

// DeriveID maps a recipe file path (relative to the recipes directory) to its
// identifier: the path without ".md", lowercased, with every run of characters
// outside [a-z0-9] collapsed to "-". Paths that leave nothing behind (e.g.
// non-Latin names) get a stable hash-based identifier instead.
func DeriveID(relPath string) string {
	stem := strings.TrimSuffix(path.Clean(strings.ReplaceAll(relPath, "\\", "/")), ".md")
	if id := slugify(stem); id != "" {
		return id
	}
	return "recipe-" + checksum.SumString(relPath)[:12]
}

// Slug turns a recipe title into a file stem, truncating long titles.
func Slug(title string) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) > maxSlugLen {
		r = r[:maxSlugLen]
	}
	return slugify(string(r))
}

func slugify(s string) string {
	return strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
