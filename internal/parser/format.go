package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format renders a header, steps and notes in the canonical recipe file
// layout. The output parses back to the same header and steps.
func Format(h Header, steps []string, notes string) ([]byte, error) {
	h.normalize()
	if err := h.Validate(); err != nil {
		field, cause := firstFieldError(err)
		return nil, &ParseError{Path: "(draft)", Field: field, Err: cause}
	}

	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("parser: encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode header: %w", err)
	}
	buf.WriteString(fence + "\n\n")

	n := 0
	for _, s := range steps {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		n++
		fmt.Fprintf(&buf, "%d. %s\n", n, s)
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		if n > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(notes + "\n")
	}
	return buf.Bytes(), nil
}
