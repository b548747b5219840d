package calibrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/swiftlint-autodetect/internal/config"
	"github.com/phobologic/swiftlint-autodetect/internal/diagnostic"
	"github.com/phobologic/swiftlint-autodetect/internal/model"
	"github.com/phobologic/swiftlint-autodetect/internal/swiftlint"
)

const ruleTable = `+------------+-------------+----------+-------+
| identifier | correctable | analyzer | kind  |
+------------+-------------+----------+-------+
| x          | yes         | no       | style |
| y          | no          | yes      | lint  |
| z          | no          | no       | metrics |
| attributes | no          | no       | style |
+------------+-------------+----------+-------+
`

// stubRunner stands in for swiftlint. Lint reads the configuration back from
// disk, so tests exercise the write-then-invoke protocol.
type stubRunner struct {
	table  string
	stderr string

	// diagnostics are emitted for every enabled rule unless lint is set.
	diagnostics map[string][]string
	lint        func(doc config.Document) string

	rulesCalls int
	configs    []config.Document
}

func (s *stubRunner) Rules(context.Context) (string, error) {
	s.rulesCalls++
	return s.table, nil
}

func (s *stubRunner) Lint(_ context.Context, configPath, _ string) (string, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", err
	}
	doc, err := config.Parse(data)
	if err != nil {
		return "", err
	}
	s.configs = append(s.configs, doc)

	if s.stderr != "" {
		return "", &swiftlint.InvocationError{Args: []string{"lint"}, Stderr: s.stderr}
	}
	if s.lint != nil {
		return s.lint(doc), nil
	}

	var b strings.Builder
	for _, id := range doc.Enabled() {
		for _, line := range s.diagnostics[id] {
			b.WriteString(line + "\n")
		}
	}
	return b.String(), nil
}

func repeat(line string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = line
	}
	return out
}

func newCalibrator(t *testing.T, r *stubRunner) (*Calibrator, string) {
	t.Helper()
	if r.table == "" {
		r.table = ruleTable
	}
	path := filepath.Join(t.TempDir(), "swiftlint.yml")
	return New(r, path), path
}

func TestTally(t *testing.T) {
	t.Parallel()

	r := &stubRunner{diagnostics: map[string][]string{
		"x": repeat("a.swift:1:1: warning: msg (x)", 3),
		"y": {"a.swift:2:1: warning: msg (y)"},
	}}
	c, _ := newCalibrator(t, r)

	got, err := c.Tally(context.Background(), "/src")
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	want := []model.RuleCount{{RuleID: "x", Count: 3}, {RuleID: "y", Count: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tally = %v, want %v", got, want)
	}

	// Every known rule except the reserved one was enabled for the run.
	doc := r.configs[0]
	if got := doc.Enabled(); !reflect.DeepEqual(got, []string{"x", "z", "y"}) {
		t.Errorf("enabled = %v", got)
	}
}

func TestSortedTies(t *testing.T) {
	t.Parallel()

	got := Sorted(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1})
	want := []model.RuleCount{
		{RuleID: "c", Count: 5}, {RuleID: "a", Count: 2}, {RuleID: "b", Count: 2}, {RuleID: "d", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted = %v, want %v", got, want)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Count > got[i-1].Count {
			t.Errorf("not descending at %d: %v", i, got)
		}
	}
}

func TestTallyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		runner *stubRunner
		check  func(error) bool
	}{
		{
			name:   "unknown rule",
			runner: &stubRunner{lint: func(config.Document) string { return "a.swift:1:1: warning: msg (ghost)\n" }},
			check: func(err error) bool {
				var ue *UnknownRuleError
				return errors.As(err, &ue) && ue.RuleID == "ghost"
			},
		},
		{
			name:   "stderr",
			runner: &stubRunner{stderr: "error: No lintable files found at paths: ''"},
			check:  func(err error) bool { return errors.Is(err, swiftlint.ErrInvocation) },
		},
		{
			name:   "malformed line",
			runner: &stubRunner{lint: func(config.Document) string { return "a.swift:1:1: warning: msg (x)\nDone linting!\n" }},
			check: func(err error) bool {
				var me *diagnostic.MalformedError
				return errors.As(err, &me) && me.Line == "Done linting!"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newCalibrator(t, tt.runner)
			_, err := c.Tally(context.Background(), "/src")
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAutodetect(t *testing.T) {
	t.Parallel()

	r := &stubRunner{diagnostics: map[string][]string{
		"x": repeat("a.swift:1:1: warning: msg (x)", 2),
	}}
	c, path := newCalibrator(t, r)

	res, err := c.Autodetect(context.Background(), "/src", AutodetectOptions{})
	if err != nil {
		t.Fatalf("Autodetect: %v", err)
	}

	want := `only_rules:
  # - x
  - z
analyzer_rules:
  - y
`
	if got := config.Render(res.Document); got != want {
		t.Errorf("document:\n%s\nwant:\n%s", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("persisted document:\n%s", data)
	}
	if res.Runs != 1 {
		t.Errorf("Runs = %d, want 1", res.Runs)
	}
}

func TestAutodetectPolicy(t *testing.T) {
	t.Parallel()

	diags := map[string][]string{
		"x": repeat("a.swift:1:1: warning: msg (x)", 3),
		"z": {"a.swift:9:1: warning: msg (z)"},
	}

	tests := []struct {
		name string
		opts AutodetectOptions
		want []string
	}{
		{"default", AutodetectOptions{}, []string{"x", "z"}},
		{"minimum violations", AutodetectOptions{MinimumViolations: 2}, []string{"x"}},
		{"ignore fixable", AutodetectOptions{IgnoreFixable: true}, []string{"z"}},
		{"always disabled", AutodetectOptions{MinimumViolations: 5, AlwaysDisabled: []string{"y"}}, []string{"y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newCalibrator(t, &stubRunner{diagnostics: diags})
			res, err := c.Autodetect(context.Background(), "/src", tt.opts)
			if err != nil {
				t.Fatalf("Autodetect: %v", err)
			}
			if got := res.Document.Disabled(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("disabled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAutodetectCounts(t *testing.T) {
	t.Parallel()

	r := &stubRunner{diagnostics: map[string][]string{
		"x": repeat("a.swift:1:1: warning: msg (x)", 3),
		"y": {"a.swift:2:1: warning: msg (y)"},
	}}
	c, _ := newCalibrator(t, r)

	res, err := c.Autodetect(context.Background(), "/src", AutodetectOptions{Counts: true})
	if err != nil {
		t.Fatalf("Autodetect: %v", err)
	}

	got := config.Render(res.Document)
	for _, want := range []string{
		"  # - x # 3 violations (fixable)\n",
		"  # - y # 1 violation\n",
		"  - z\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestAutodetectVerify(t *testing.T) {
	t.Parallel()

	// z only fails once x is out of the way.
	r := &stubRunner{lint: func(doc config.Document) string {
		var out []string
		enabled := doc.Enabled()
		for _, id := range enabled {
			switch id {
			case "x":
				out = append(out, "a.swift:1:1: warning: msg (x)")
			case "z":
				if !contains(enabled, "x") {
					out = append(out, "a.swift:2:1: warning: msg (z)")
				}
			}
		}
		return strings.Join(out, "\n")
	}}
	c, _ := newCalibrator(t, r)

	res, err := c.Autodetect(context.Background(), "/src", AutodetectOptions{Verify: true})
	if err != nil {
		t.Fatalf("Autodetect: %v", err)
	}
	if got := res.Document.Disabled(); !reflect.DeepEqual(got, []string{"x", "z"}) {
		t.Errorf("disabled = %v", got)
	}
	if res.Runs != 3 {
		t.Errorf("Runs = %d, want 3", res.Runs)
	}
}

func TestAutodetectVerifyNotConverged(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("+--+\n| identifier | analyzer |\n+--+\n")
	for i := range 10 {
		fmt.Fprintf(&b, "| r%d | no |\n", i)
	}
	b.WriteString("+--+\n")

	// Only the first enabled rule ever fails.
	r := &stubRunner{table: b.String(), lint: func(doc config.Document) string {
		enabled := doc.Enabled()
		if len(enabled) == 0 {
			return ""
		}
		return fmt.Sprintf("a.swift:1:1: warning: msg (%s)\n", enabled[0])
	}}
	c, _ := newCalibrator(t, r)

	_, err := c.Autodetect(context.Background(), "/src", AutodetectOptions{Verify: true})
	if !errors.Is(err, ErrNotConverged) {
		t.Errorf("err = %v, want ErrNotConverged", err)
	}
}

// calibrationLint reports one violation per count above the configured
// warning level of rule.
func calibrationLint(rule string, counts []int) func(config.Document) string {
	return func(doc config.Document) string {
		th := doc.Thresholds[rule]
		var b strings.Builder
		for i, n := range counts {
			if n <= th.Warning {
				continue
			}
			fmt.Fprintf(&b, "a.swift:%d:1: warning: Function Body Length Violation: Function body should span %d lines or less excluding comments and whitespace: currently spans %d lines (%s)\n",
				i+1, th.Warning, n, rule)
		}
		return b.String()
	}
}

func TestMinimize(t *testing.T) {
	t.Parallel()

	r := &stubRunner{lint: calibrationLint("z", []int{2, 5, 3})}
	c, _ := newCalibrator(t, r)

	res, err := c.Minimize(context.Background(), "/src", "z", MinimizeOptions{Verify: true})
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if res.Threshold != (config.Threshold{Warning: 5, Error: 5}) {
		t.Errorf("Threshold = %+v", res.Threshold)
	}
	if res.Violations != 3 {
		t.Errorf("Violations = %d, want 3", res.Violations)
	}

	want := "only_rules:\n  - z\nz:\n  warning: 5\n  error: 5\n"
	if got := config.Render(res.Document); got != want {
		t.Errorf("document:\n%s\nwant:\n%s", got, want)
	}

	probe := r.configs[0]
	if !reflect.DeepEqual(probe.Enabled(), []string{"z"}) {
		t.Errorf("probe enabled = %v", probe.Enabled())
	}
	if probe.Thresholds["z"] != (config.Threshold{Warning: 0, Error: 1_000_000}) {
		t.Errorf("probe threshold = %+v", probe.Thresholds["z"])
	}
	if len(r.configs) != 2 {
		t.Errorf("lint runs = %d, want 2 (probe + verify)", len(r.configs))
	}
}

func TestMinimizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rule   string
		runner *stubRunner
		check  func(error) bool
	}{
		{
			name: "rule mismatch",
			rule: "z",
			runner: &stubRunner{lint: func(config.Document) string {
				return "a.swift:1:1: warning: should be 0 or less: currently 4 (z)\nb.swift:3:2: warning: should be 0 or less: currently 4 (x)\n"
			}},
			check: func(err error) bool {
				var me *RuleMismatchError
				return errors.As(err, &me) && me.Got == "x" && me.Location == "b.swift:3:2"
			},
		},
		{
			name: "missing count",
			rule: "z",
			runner: &stubRunner{lint: func(config.Document) string {
				return "a.swift:1:1: warning: something odd (z)\n"
			}},
			check: func(err error) bool { return errors.Is(err, diagnostic.ErrMalformed) },
		},
		{
			name:   "no violations",
			rule:   "z",
			runner: &stubRunner{lint: func(config.Document) string { return "" }},
			check:  func(err error) bool { return errors.Is(err, ErrNoViolations) },
		},
		{
			name:   "unknown rule",
			rule:   "nope",
			runner: &stubRunner{},
			check:  func(err error) bool { return errors.Is(err, ErrUnknownRule) },
		},
		{
			name: "verify fails",
			rule: "z",
			runner: &stubRunner{lint: func(config.Document) string {
				return "a.swift:1:1: warning: should be 0 or less: currently 4 (z)\n"
			}},
			check: func(err error) bool { return errors.Is(err, ErrNotConverged) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newCalibrator(t, tt.runner)
			_, err := c.Minimize(context.Background(), "/src", tt.rule, MinimizeOptions{Verify: true})
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMaxCount(t *testing.T) {
	t.Parallel()

	vs := []model.Violation{{Count: 2}, {Count: 5}, {Count: 3}}
	if got := MaxCount(vs); got != 5 {
		t.Errorf("MaxCount = %d, want 5", got)
	}
	if got := MaxCount(nil); got != 0 {
		t.Errorf("MaxCount(nil) = %d, want 0", got)
	}
}

func TestRegistryLoadedOnce(t *testing.T) {
	t.Parallel()

	r := &stubRunner{lint: calibrationLint("z", []int{4})}
	c, _ := newCalibrator(t, r)
	ctx := context.Background()

	if _, err := c.Tally(ctx, "/src"); err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if _, err := c.Minimize(ctx, "/src", "z", MinimizeOptions{}); err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if r.rulesCalls != 1 {
		t.Errorf("rules listed %d times, want 1", r.rulesCalls)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
