// Package diagnostic parses violation lines printed by `swiftlint lint`.
package diagnostic

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/swiftlint-autodetect/internal/model"
)

// ErrMalformed is wrapped by every diagnostic parse failure.
var ErrMalformed = errors.New("malformed diagnostic")

// MalformedError carries the raw line that could not be parsed.
type MalformedError struct {
	Line   string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("failed to parse diagnostic: %q", e.Line)
	}
	return fmt.Sprintf("failed to parse diagnostic (%s): %q", e.Reason, e.Line)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

var (
	linePattern = regexp.MustCompile(
		`^(?P<path>.+):(?P<line>\d+):(?P<column>\d+): (?P<severity>warning|error): (?P<message>.+) \((?P<rule>[^()\s]+)\)$`)
	integerPattern = regexp.MustCompile(`\d+`)
)

// Parse parses one diagnostic line of the form
//
//	<path>:<line>:<col>: <warning|error>: <message> (<rule>)
func Parse(line string) (model.Violation, error) {
	line = strings.TrimSpace(line)
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return model.Violation{}, &MalformedError{Line: line}
	}

	lineNo, err := strconv.Atoi(m[linePattern.SubexpIndex("line")])
	if err != nil {
		return model.Violation{}, &MalformedError{Line: line, Reason: "line number"}
	}
	col, err := strconv.Atoi(m[linePattern.SubexpIndex("column")])
	if err != nil {
		return model.Violation{}, &MalformedError{Line: line, Reason: "column"}
	}

	return model.Violation{
		Path:     m[linePattern.SubexpIndex("path")],
		Line:     lineNo,
		Column:   col,
		Severity: model.Severity(m[linePattern.SubexpIndex("severity")]),
		Message:  m[linePattern.SubexpIndex("message")],
		RuleID:   m[linePattern.SubexpIndex("rule")],
	}, nil
}

// ParseCalibration parses a diagnostic produced while the rule's warning
// threshold is set to limit and fills in its Count.
func ParseCalibration(line string, limit int) (model.Violation, error) {
	v, err := Parse(line)
	if err != nil {
		return v, err
	}
	return WithCount(v, line, limit)
}

// WithCount sets v.Count from a message produced at warning threshold limit.
// SwiftLint messages state the limit before the measured value ("should span
// 0 lines or less: currently spans 42 lines"), so the count is the first
// integer that follows the limit token. line is only used in the error.
func WithCount(v model.Violation, line string, limit int) (model.Violation, error) {
	want := strconv.Itoa(limit)
	tokens := integerPattern.FindAllString(v.Message, -1)
	for i, tok := range tokens {
		if tok != want || i+1 >= len(tokens) {
			continue
		}
		n, err := strconv.Atoi(tokens[i+1])
		if err != nil {
			break
		}
		v.Count = n
		return v, nil
	}

	return model.Violation{}, &MalformedError{Line: strings.TrimSpace(line), Reason: "no count after limit " + want}
}

// ParseAll applies parse to every non-blank line of output, stopping at the
// first failure.
func ParseAll(output string, parse func(string) (model.Violation, error)) ([]model.Violation, error) {
	var out []model.Violation
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, err := parse(line)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
