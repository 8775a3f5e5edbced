// Package parser turns recipe files into a typed header, ordered steps and notes.
//
// A recipe file is a YAML header between "---" fences followed by a Markdown
// body. Items of top-level numbered lists become steps; the remaining prose is
// kept as notes.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

const fence = "---"

var (
	// ErrMissingHeader is returned when a file does not open with a header fence.
	ErrMissingHeader = errors.New("missing header: file must start with ---")
	// ErrUnterminatedHeader is returned when the closing fence is absent.
	ErrUnterminatedHeader = errors.New("unterminated header: closing --- not found")

	markdown = goldmark.New()

	notesPolicyOnce sync.Once
	notesPolicy     *bluemonday.Policy
)

// ParseError describes why a recipe file was rejected.
type ParseError struct {
	Path  string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse %s: %s: %v", e.Path, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Scalar is a YAML scalar kept as its literal text, so "1/2" and "0.25"
// reach the quantity parser exactly as written.
type Scalar string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a single value", node.Line)
	}
	*s = Scalar(node.Value)
	return nil
}

// Header is the YAML block at the top of a recipe file. Unrecognized keys
// land in Extra and are otherwise ignored.
type Header struct {
	Title       string            `yaml:"title" json:"title"`
	Tags        []string          `yaml:"tags,omitempty" json:"tags"`
	Description string            `yaml:"description,omitempty" json:"description"`
	Ingredients []IngredientEntry `yaml:"ingredients" json:"ingredients"`
	Extra       map[string]any    `yaml:",inline" json:"-"`
}

// Validate implements validation.Validatable.
func (h Header) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Title, validation.Required),
		validation.Field(&h.Tags, validation.Each(validation.Required)),
		validation.Field(&h.Ingredients, validation.Required, validation.Length(1, 0)),
	)
}

// IngredientEntry is one element of the header's ingredients list.
type IngredientEntry struct {
	Name   string         `yaml:"name" json:"name"`
	Amount Scalar         `yaml:"amount" json:"amount"`
	Unit   string         `yaml:"unit,omitempty" json:"unit"`
	Extra  map[string]any `yaml:",inline" json:"-"`
}

// Validate implements validation.Validatable.
func (e IngredientEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Amount, validation.Required),
	)
}

// Result holds the output of parsing a recipe file.
type Result struct {
	Header    Header
	Steps     []string
	Notes     string
	NotesHTML string
	Body      string
}

// Parse parses a recipe file. Any structural defect is reported as a
// *ParseError naming path and, where known, the offending field.
func Parse(path string, data []byte) (*Result, error) {
	headerBlock, body, err := splitHeader(data)
	if err != nil {
		return nil, &ParseError{Path: path, Field: "header", Err: err}
	}

	var h Header
	if err := yaml.Unmarshal(headerBlock, &h); err != nil {
		return nil, &ParseError{Path: path, Field: "header", Err: err}
	}
	h.normalize()
	if err := h.Validate(); err != nil {
		field, cause := firstFieldError(err)
		return nil, &ParseError{Path: path, Field: field, Err: cause}
	}

	steps, notes := splitBody([]byte(body))
	return &Result{
		Header:    h,
		Steps:     steps,
		Notes:     notes,
		NotesHTML: renderNotes(notes),
		Body:      body,
	}, nil
}

// splitHeader separates the fenced YAML header from the Markdown body.
// Unlike a lenient front-matter reader, a missing or unterminated header is
// an error: a recipe without its metadata is not servable.
func splitHeader(data []byte) ([]byte, string, error) {
	normalized := strings.ReplaceAll(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start == len(lines) || strings.TrimRight(lines[start], " \t") != fence {
		return nil, "", ErrMissingHeader
	}

	for i := start + 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == fence {
			header := strings.Join(lines[start+1:i], "\n")
			body := strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
			return []byte(header), body, nil
		}
	}
	return nil, "", ErrUnterminatedHeader
}

func (h *Header) normalize() {
	h.Title = strings.TrimSpace(h.Title)
	h.Description = strings.TrimSpace(h.Description)
	for i := range h.Tags {
		h.Tags[i] = strings.TrimSpace(h.Tags[i])
	}
	for i := range h.Ingredients {
		e := &h.Ingredients[i]
		e.Name = strings.TrimSpace(e.Name)
		e.Unit = strings.TrimSpace(e.Unit)
		e.Amount = Scalar(strings.TrimSpace(string(e.Amount)))
	}
}

// firstFieldError flattens nested ozzo errors into a dotted field path such
// as "ingredients.1.amount", choosing the lexically first one.
func firstFieldError(err error) (string, error) {
	var errs validation.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "", err
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := keys[0]
	sub, cause := firstFieldError(errs[key])
	if sub == "" {
		return key, cause
	}
	return key + "." + sub, cause
}

// splitBody returns the items of every top-level ordered list, in document
// order, and the rest of the body as notes. Prose before, between and after
// the lists is kept in document order, separated by blank lines; a heading
// directly above a list labels the steps and is left out. A body without a
// numbered list is kept whole as notes.
func splitBody(src []byte) ([]string, string) {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var (
		steps []string
		prose []string
		from  int
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		list, ok := n.(*ast.List)
		if !ok || !list.IsOrdered() {
			continue
		}
		for item := list.FirstChild(); item != nil; item = item.NextSibling() {
			if s := itemText(item, src); s != "" {
				steps = append(steps, s)
			}
		}
		var label ast.Node = list
		if h, ok := list.PreviousSibling().(*ast.Heading); ok {
			label = h
		}
		if start, ok := blockStart(label, src); ok && start > from {
			prose = appendProse(prose, src[from:start])
		}
		from = listEnd(list, src)
	}
	prose = appendProse(prose, src[from:])
	return steps, strings.Join(prose, "\n\n")
}

func appendProse(prose []string, b []byte) []string {
	if s := strings.TrimSpace(string(b)); s != "" {
		return append(prose, s)
	}
	return prose
}

// itemText joins the source lines of a list item's own blocks; nested lists
// are skipped.
func itemText(item ast.Node, src []byte) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, nested := c.(*ast.List); nested {
			continue
		}
		lines := c.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			if s := strings.TrimSpace(string(seg.Value(src))); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// blockStart returns the offset of the start of the line holding the first
// content of n.
func blockStart(n ast.Node, src []byte) (int, bool) {
	start := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		if lines := c.Lines(); lines.Len() > 0 {
			start = lines.At(0).Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if start < 0 {
		return 0, false
	}
	return lineStart(src, start), true
}

// listEnd returns the offset just past list. Block content of goldmark nodes
// leaves out closing code fences, so the list runs on over the blank and
// indented lines after its last content, up to where the next sibling starts.
func listEnd(list ast.Node, src []byte) int {
	end := 0
	_ = ast.Walk(list, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		if lines := c.Lines(); lines.Len() > 0 {
			end = max(end, lines.At(lines.Len()-1).Stop)
		}
		return ast.WalkContinue, nil
	})
	if end > 0 {
		end = nextLine(src, end-1)
	}

	limit := len(src)
	if next := list.NextSibling(); next != nil {
		if start, ok := blockStart(next, src); ok {
			limit = start
		}
	}
	for end < limit {
		line := src[end:nextLine(src, end)]
		if len(bytes.TrimSpace(line)) > 0 && line[0] != ' ' && line[0] != '\t' {
			break
		}
		end = nextLine(src, end)
	}
	return min(end, limit)
}

func lineStart(src []byte, off int) int {
	return bytes.LastIndexByte(src[:off], '\n') + 1
}

// nextLine returns the offset just past the newline ending the line that
// contains off, or len(src).
func nextLine(src []byte, off int) int {
	if off >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[off:], '\n'); i >= 0 {
		return off + i + 1
	}
	return len(src)
}

func renderNotes(notes string) string {
	if notes == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(notes), &buf); err != nil {
		return ""
	}
	return string(notesSanitizer().SanitizeBytes(buf.Bytes()))
}

func notesSanitizer() *bluemonday.Policy {
	notesPolicyOnce.Do(func() {
		notesPolicy = bluemonday.UGCPolicy()
	})
	return notesPolicy
}
