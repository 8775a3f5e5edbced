package recipestore

import (
	"fmt"
	"strings"
)

// CollisionError reports files whose names normalize to the same identifier.
// None of them is indexed.
type CollisionError struct {
	ID    string
	Paths []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("identifier %q claimed by multiple files: %s", e.ID, strings.Join(e.Paths, ", "))
}
