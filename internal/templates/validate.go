package templates

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/starford/recipebox/internal/apperr"
)

var (
	setOnce sync.Once
	set     *pongo2.TemplateSet
	// FromString marks the set as used; serialize compiles so that write is not racy.
	compileMu sync.Mutex
)

// ssi reads arbitrary host files while a layout is parsed.
var bannedTags = []string{"ssi"}

func templateSet() *pongo2.TemplateSet {
	setOnce.Do(func() {
		set = pongo2.NewSet("recipebox", pongo2.NewFSLoader(DefaultsFS()))
		for _, tag := range bannedTags {
			if err := set.BanTag(tag); err != nil {
				panic(fmt.Sprintf("templates: ban tag %s: %v", tag, err))
			}
		}
	})
	return set
}

// ValidationError describes the construct that made a layout unusable.
type ValidationError struct {
	Construct string
	Line      int
	Column    int
	Reason    string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid template")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	}
	if e.Construct != "" {
		fmt.Fprintf(&b, " near %q", e.Construct)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Unwrap lets callers match apperr.ErrInvalid.
func (e *ValidationError) Unwrap() error { return apperr.ErrInvalid }

// Validate checks that content is a well-formed layout without rendering it.
func Validate(content string) error {
	_, err := Compile(content)
	return err
}

// Compile parses content into an executable template. Failures are returned
// as *ValidationError.
func Compile(content string) (*pongo2.Template, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ValidationError{Reason: "template is empty"}
	}

	compileMu.Lock()
	tpl, err := templateSet().FromString(content)
	compileMu.Unlock()
	if err != nil {
		return nil, toValidationError(err)
	}
	return tpl, nil
}

func toValidationError(err error) *ValidationError {
	var perr *pongo2.Error
	if !errors.As(err, &perr) {
		return &ValidationError{Reason: err.Error()}
	}
	ve := &ValidationError{Line: perr.Line, Column: perr.Column}
	if perr.Token != nil {
		ve.Construct = perr.Token.Val
		if ve.Line == 0 {
			ve.Line, ve.Column = perr.Token.Line, perr.Token.Col
		}
	}
	if perr.OrigError != nil {
		ve.Reason = perr.OrigError.Error()
	} else {
		ve.Reason = perr.Error()
	}
	return ve
}
