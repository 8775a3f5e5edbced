package templates

import (
	"fmt"
	"strings"

	"github.com/starford/recipebox/internal/apperr"
)

// Slot names one of the fixed page layouts.
type Slot string

const (
	SlotDashboard Slot = "dashboard"
	SlotRecipe    Slot = "recipe"
	SlotHome      Slot = "home"
)

const overrideExt = ".html"

// Slots returns every slot in display order.
func Slots() []Slot {
	return []Slot{SlotHome, SlotRecipe, SlotDashboard}
}

// ParseSlot maps a name such as "recipe" to its Slot.
func ParseSlot(name string) (Slot, error) {
	s := Slot(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", unknownSlot(name)
	}
	return s, nil
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	switch s {
	case SlotDashboard, SlotRecipe, SlotHome:
		return true
	}
	return false
}

// FileName is the override file for s, relative to the overrides directory.
func (s Slot) FileName() string {
	return string(s) + overrideExt
}

func (s Slot) String() string { return string(s) }

// SlotForFile returns the slot whose override lives at name, if any.
func SlotForFile(name string) (Slot, bool) {
	if !strings.HasSuffix(name, overrideExt) {
		return "", false
	}
	s := Slot(strings.TrimSuffix(name, overrideExt))
	return s, s.Valid()
}

func unknownSlot(name string) error {
	return fmt.Errorf("templates: slot %q: %w", name, apperr.ErrUnknownSlot)
}
