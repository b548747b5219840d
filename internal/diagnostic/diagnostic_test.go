package diagnostic

import (
	"errors"
	"testing"

	"github.com/phobologic/swiftlint-autodetect/internal/model"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want model.Violation
	}{
		{
			name: "warning",
			line: "a.swift:1:1: warning: msg (x)",
			want: model.Violation{Path: "a.swift", Line: 1, Column: 1, Severity: model.Warning, Message: "msg", RuleID: "x"},
		},
		{
			name: "error with absolute path",
			line: "/src/App/View.swift:42:7: error: Force Cast Violation: Force casts should be avoided (force_cast)",
			want: model.Violation{
				Path: "/src/App/View.swift", Line: 42, Column: 7, Severity: model.Error,
				Message: "Force Cast Violation: Force casts should be avoided", RuleID: "force_cast",
			},
		},
		{
			name: "parentheses inside message",
			line: "b.swift:3:9: warning: Line Length Violation: Line should be 120 characters or less (currently 130) (line_length)",
			want: model.Violation{
				Path: "b.swift", Line: 3, Column: 9, Severity: model.Warning,
				Message: "Line Length Violation: Line should be 120 characters or less (currently 130)", RuleID: "line_length",
			},
		},
		{
			name: "surrounding whitespace",
			line: "  c.swift:2:1: warning: msg (y)\r",
			want: model.Violation{Path: "c.swift", Line: 2, Column: 1, Severity: model.Warning, Message: "msg", RuleID: "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q)\n got  %+v\n want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	lines := []string{
		"Linting Swift files in current working directory",
		"a.swift:1: warning: msg (x)",
		"a.swift:1:1: note: msg (x)",
		"a.swift:1:1: warning: msg without rule",
	}
	for _, line := range lines {
		_, err := Parse(line)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q): err = %v, want ErrMalformed", line, err)
		}
		var me *MalformedError
		if errors.As(err, &me) && me.Line != line {
			t.Errorf("MalformedError.Line = %q, want %q", me.Line, line)
		}
	}
}

func TestParseCalibration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want int
	}{
		{"a.swift:10:5: warning: Function Body Length Violation: Function body should span 0 lines or less excluding comments and whitespace: currently spans 12 lines (function_body_length)", 12},
		{"a.swift:1:1: warning: Line Length Violation: Line should be 0 characters or less; currently it has 130 characters (line_length)", 130},
		{"a.swift:1:1: warning: File Length Violation: File should contain 0 lines or less: currently contains 500 (file_length)", 500},
	}

	for _, tt := range tests {
		got, err := ParseCalibration(tt.line, 0)
		if err != nil {
			t.Fatalf("ParseCalibration(%q): %v", tt.line, err)
		}
		if got.Count != tt.want {
			t.Errorf("Count = %d, want %d", got.Count, tt.want)
		}
	}
}

func TestParseCalibrationMissingCount(t *testing.T) {
	t.Parallel()

	lines := []string{
		"a.swift:1:1: warning: Force casts should be avoided (force_cast)",
		"a.swift:1:1: warning: limit is 0 and nothing follows (x)",
		"garbage",
	}
	for _, line := range lines {
		if _, err := ParseCalibration(line, 0); !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseCalibration(%q): err = %v, want ErrMalformed", line, err)
		}
	}
}

func TestWithCount(t *testing.T) {
	t.Parallel()

	line := "a.swift:7:3: warning: Line should be 0 characters or less; currently it has 131 characters (line_length)"
	v, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, err := WithCount(v, line, 0)
	if err != nil {
		t.Fatalf("WithCount: %v", err)
	}
	if got.Count != 131 || got.RuleID != "line_length" || got.Line != 7 {
		t.Errorf("WithCount = %+v", got)
	}

	v.Message = "Line is too long"
	_, err = WithCount(v, line, 0)
	var me *MalformedError
	if !errors.As(err, &me) || me.Line != line {
		t.Errorf("err = %v, want *MalformedError for %q", err, line)
	}
}

func TestParseAll(t *testing.T) {
	t.Parallel()

	output := "a.swift:1:1: warning: msg (x)\n\na.swift:2:1: warning: msg (y)\n"
	got, err := ParseAll(output, Parse)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(got) != 2 || got[0].RuleID != "x" || got[1].RuleID != "y" {
		t.Errorf("ParseAll = %+v", got)
	}

	_, err = ParseAll(output+"oops\n", Parse)
	var me *MalformedError
	if !errors.As(err, &me) || me.Line != "oops" {
		t.Errorf("err = %v, want MalformedError for oops", err)
	}
}
