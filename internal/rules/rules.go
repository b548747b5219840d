// Package rules parses the rule catalog printed by `swiftlint rules`.
package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/phobologic/swiftlint-autodetect/internal/model"
)

// ErrMalformedTable is wrapped by every table parse failure.
var ErrMalformedTable = errors.New("malformed rule table")

// MalformedTableError describes where the rule table stopped making sense.
type MalformedTableError struct {
	Line   int // zero-based line index, -1 for whole-table problems
	Reason string
}

func (e *MalformedTableError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("malformed rule table: %s", e.Reason)
	}
	return fmt.Sprintf("malformed rule table: line %d: %s", e.Line, e.Reason)
}

func (e *MalformedTableError) Unwrap() error { return ErrMalformedTable }

// ParseTable builds a registry from the bordered text table printed by
// `swiftlint rules`. Line 1 is the header, lines 0 and 2 are borders and the
// last line is the closing border.
func ParseTable(output string) (*model.Registry, error) {
	lines := strings.Split(strings.TrimRight(output, "\r\n"), "\n")
	if len(lines) < 4 {
		return nil, &MalformedTableError{Line: -1, Reason: fmt.Sprintf("expected at least 4 lines, got %d", len(lines))}
	}

	header := splitRow(lines[1])
	idCol := -1
	for i, name := range header {
		if name == model.AttrIdentifier {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, &MalformedTableError{Line: 1, Reason: "no identifier column"}
	}

	reg := model.NewRegistry()
	for i := 3; i < len(lines)-1; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		values := splitRow(lines[i])
		if len(values) != len(header) {
			return nil, &MalformedTableError{
				Line:   i,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(values)),
			}
		}

		attrs := make(map[string]string, len(header))
		for j, name := range header {
			attrs[name] = values[j]
		}
		reg.Add(model.Rule{ID: values[idCol], Attrs: attrs})
	}

	return reg, nil
}

// splitRow splits a table row on "|", trims each cell and drops the empty
// boundary cells outside the first and last delimiters.
func splitRow(line string) []string {
	parts := strings.Split(strings.TrimRight(line, "\r"), "|")
	if len(parts) < 2 {
		return nil
	}
	parts = parts[1 : len(parts)-1]
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Source produces the raw `swiftlint rules` output.
type Source interface {
	Rules(ctx context.Context) (string, error)
}

// Catalog loads the rule registry once and caches it (or the error) for the
// lifetime of the process.
type Catalog struct {
	src      Source
	loadOnce sync.Once
	reg      *model.Registry
	loadErr  error
}

// NewCatalog returns a catalog backed by src. Nothing is loaded until
// Registry is first called.
func NewCatalog(src Source) *Catalog {
	return &Catalog{src: src}
}

// Registry returns the parsed rule registry, invoking the source on first use.
func (c *Catalog) Registry(ctx context.Context) (*model.Registry, error) {
	c.loadOnce.Do(func() {
		out, err := c.src.Rules(ctx)
		if err != nil {
			c.loadErr = fmt.Errorf("listing rules: %w", err)
			return
		}
		c.reg, c.loadErr = ParseTable(out)
	})
	return c.reg, c.loadErr
}
