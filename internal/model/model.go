// Package model defines core data structures for swiftlint-autodetect.
package model

// Column names used by the SwiftLint rule table.
const (
	AttrIdentifier  = "identifier"
	AttrOptIn       = "opt-in"
	AttrCorrectable = "correctable"
	AttrKind        = "kind"
	AttrAnalyzer    = "analyzer"
)

// Rule is a single SwiftLint rule as described by `swiftlint rules`.
// Attrs holds every table cell keyed by its column header.
type Rule struct {
	ID    string
	Attrs map[string]string
}

// Analyzer reports whether the rule is enforced by `swiftlint analyze`.
func (r Rule) Analyzer() bool { return r.Attrs[AttrAnalyzer] == "yes" }

// Correctable reports whether `swiftlint --fix` can correct the rule.
func (r Rule) Correctable() bool { return r.Attrs[AttrCorrectable] == "yes" }

// OptIn reports whether the rule is disabled by default.
func (r Rule) OptIn() bool { return r.Attrs[AttrOptIn] == "yes" }

// Kind returns the rule category (style, lint, metrics, ...).
func (r Rule) Kind() string { return r.Attrs[AttrKind] }

// Registry maps rule identifiers to rules, preserving table order.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Add inserts r. A later rule with the same identifier replaces the earlier
// one but keeps its position.
func (reg *Registry) Add(r Rule) {
	if _, ok := reg.rules[r.ID]; !ok {
		reg.order = append(reg.order, r.ID)
	}
	reg.rules[r.ID] = r
}

// Get looks up a rule by identifier.
func (reg *Registry) Get(id string) (Rule, bool) {
	r, ok := reg.rules[id]
	return r, ok
}

// Len returns the number of distinct rules.
func (reg *Registry) Len() int { return len(reg.order) }

// Rules returns all rules in table order.
func (reg *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(reg.order))
	for _, id := range reg.order {
		out = append(out, reg.rules[id])
	}
	return out
}

// Severity is the level SwiftLint reports a violation at.
type Severity string

const (
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Violation is one diagnostic line emitted by `swiftlint lint`.
type Violation struct {
	Path     string
	Line     int
	Column   int
	Severity Severity
	Message  string
	RuleID   string

	// Count is the measured value embedded in the message. Only set for
	// calibration diagnostics.
	Count int
}

// RuleCount is the number of violations observed for one rule.
type RuleCount struct {
	RuleID string
	Count  int
}
