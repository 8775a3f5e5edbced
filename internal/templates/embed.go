package templates

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*.html
var embeddedDefaults embed.FS

// DefaultsFS exposes the built-in layouts, one <slot>.html per slot.
func DefaultsFS() fs.FS {
	sub, err := fs.Sub(embeddedDefaults, "defaults")
	if err != nil {
		return embeddedDefaults
	}
	return sub
}

// Default returns the built-in content for slot.
func Default(slot Slot) (string, error) {
	if !slot.Valid() {
		return "", unknownSlot(string(slot))
	}
	data, err := fs.ReadFile(embeddedDefaults, "defaults/"+slot.FileName())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
