package layout

import (
	"context"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/starford/recipebox/internal/templates"
)

// LineOp marks a line of a preview as kept, added or removed.
type LineOp string

const (
	LineEqual  LineOp = "equal"
	LineInsert LineOp = "insert"
	LineDelete LineOp = "delete"
)

// Line is one line of a preview.
type Line struct {
	Op   LineOp `json:"op"`
	Text string `json:"text"`
}

// Preview compares proposed content with the layout currently served.
type Preview struct {
	Slot    templates.Slot   `json:"slot"`
	Base    templates.Origin `json:"base"`
	Changed bool             `json:"changed"`
	// Problem is set when the proposed content would be rejected by Save.
	Problem string `json:"problem,omitempty"`
	Patch   string `json:"patch"`
	Lines   []Line `json:"lines"`
}

// Diff previews replacing the effective layout for slot with content.
// Nothing is written.
func (e *Editor) Diff(ctx context.Context, slot templates.Slot, content string) (*Preview, error) {
	current, err := e.registry.Resolve(ctx, slot)
	if err != nil {
		return nil, err
	}

	p := &Preview{Slot: slot, Base: current.Origin, Changed: current.Content != content}
	if err := templates.Validate(content); err != nil {
		p.Problem = err.Error()
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(current.Content, content)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	p.Patch = dmp.PatchToText(dmp.PatchMake(current.Content, diffs))

	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineInsert
		case diffmatchpatch.DiffDelete:
			op = LineDelete
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			p.Lines = append(p.Lines, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return p, nil
}
