// Package config builds, mutates and renders SwiftLint configuration
// documents.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/swiftlint-autodetect/internal/model"
)

// Top-level keys of a SwiftLint configuration.
const (
	KeyExcluded      = "excluded"
	KeyOnlyRules     = "only_rules"
	KeyAnalyzerRules = "analyzer_rules"
	KeyOptInRules    = "opt_in_rules"
	KeyDisabledRules = "disabled_rules"
)

// ReservedIdentifier is listed by `swiftlint rules` but never placed in a
// generated configuration.
const ReservedIdentifier = "attributes"

// ErrWrite is wrapped when a configuration cannot be persisted.
var ErrWrite = errors.New("writing configuration")

// Entry is one rule identifier in a rule list.
type Entry struct {
	ID       string
	Disabled bool
	Note     string // rendered as a trailing comment
}

// Threshold holds per-rule severity levels.
type Threshold struct {
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
}

// Document is an in-memory SwiftLint configuration.
type Document struct {
	Excluded      []string
	OnlyRules     []Entry
	AnalyzerRules []Entry
	Thresholds    map[string]Threshold
}

// Complete returns a document enabling every rule in reg: analyzer rules go
// to analyzer_rules, the rest to only_rules. The reserved identifier is
// skipped.
func Complete(reg *model.Registry, excluded []string) Document {
	doc := Document{Excluded: excluded}
	for _, r := range reg.Rules() {
		if r.ID == ReservedIdentifier {
			continue
		}
		if r.Analyzer() {
			doc.AnalyzerRules = append(doc.AnalyzerRules, Entry{ID: r.ID})
		} else {
			doc.OnlyRules = append(doc.OnlyRules, Entry{ID: r.ID})
		}
	}
	return doc
}

// SingleRule returns a document that enables only rule, with explicit
// severity levels.
func SingleRule(rule string, th Threshold, excluded []string) Document {
	return Document{
		Excluded:   excluded,
		OnlyRules:  []Entry{{ID: rule}},
		Thresholds: map[string]Threshold{rule: th},
	}
}

// Disable returns a copy of d with every entry whose identifier is in ids
// marked disabled. Matching is exact.
func (d Document) Disable(ids ...string) Document {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := d.clone()
	for _, list := range [][]Entry{out.OnlyRules, out.AnalyzerRules} {
		for i := range list {
			if _, ok := set[list[i].ID]; ok {
				list[i].Disabled = true
			}
		}
	}
	return out
}

// Annotate returns a copy of d with notes attached to matching entries.
func (d Document) Annotate(notes map[string]string) Document {
	out := d.clone()
	for _, list := range [][]Entry{out.OnlyRules, out.AnalyzerRules} {
		for i := range list {
			if note, ok := notes[list[i].ID]; ok {
				list[i].Note = note
			}
		}
	}
	return out
}

// Enabled returns the identifiers that are not disabled, in document order.
func (d Document) Enabled() []string {
	var ids []string
	for _, list := range [][]Entry{d.OnlyRules, d.AnalyzerRules} {
		for _, e := range list {
			if !e.Disabled {
				ids = append(ids, e.ID)
			}
		}
	}
	return ids
}

// Disabled returns the identifiers that are disabled, in document order.
func (d Document) Disabled() []string {
	var ids []string
	for _, list := range [][]Entry{d.OnlyRules, d.AnalyzerRules} {
		for _, e := range list {
			if e.Disabled {
				ids = append(ids, e.ID)
			}
		}
	}
	return ids
}

func (d Document) clone() Document {
	out := Document{
		Excluded:      append([]string(nil), d.Excluded...),
		OnlyRules:     append([]Entry(nil), d.OnlyRules...),
		AnalyzerRules: append([]Entry(nil), d.AnalyzerRules...),
	}
	if d.Thresholds != nil {
		out.Thresholds = make(map[string]Threshold, len(d.Thresholds))
		for k, v := range d.Thresholds {
			out.Thresholds[k] = v
		}
	}
	return out
}

// Render serializes d as SwiftLint YAML. Disabled entries are kept as
// commented-out list items so they can be re-enabled by hand.
func Render(d Document) string {
	var b strings.Builder

	if len(d.Excluded) > 0 {
		b.WriteString(KeyExcluded + ":\n")
		for _, path := range d.Excluded {
			fmt.Fprintf(&b, "  - %s\n", scalar(path))
		}
	}
	writeRuleList(&b, KeyOnlyRules, d.OnlyRules)
	writeRuleList(&b, KeyAnalyzerRules, d.AnalyzerRules)

	if len(d.Thresholds) > 0 {
		keys := make([]string, 0, len(d.Thresholds))
		for k := range d.Thresholds {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			th := d.Thresholds[k]
			fmt.Fprintf(&b, "%s:\n  warning: %d\n  error: %d\n", scalar(k), th.Warning, th.Error)
		}
	}

	return b.String()
}

func writeRuleList(b *strings.Builder, key string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	b.WriteString(key + ":\n")
	for _, e := range entries {
		prefix := "  - "
		if e.Disabled {
			prefix = "  # - "
		}
		b.WriteString(prefix + scalar(e.ID))
		if e.Note != "" {
			b.WriteString(" # " + e.Note)
		}
		b.WriteByte('\n')
	}
}

var plainIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// scalar renders s as a YAML scalar. Rule identifiers stay plain unless they
// collide with a YAML 1.2 keyword; anything else goes through the encoder.
func scalar(s string) string {
	if plainIdentifier.MatchString(s) {
		switch strings.ToLower(s) {
		case "true", "false", "null":
		default:
			return s
		}
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return strings.TrimRight(string(out), "\n")
}

// Parse decodes SwiftLint YAML into a Document. Commented-out entries are not
// part of the result. Mappings other than the known list keys are read as
// per-rule thresholds when they carry warning or error levels.
func Parse(data []byte) (Document, error) {
	var doc Document

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return doc, fmt.Errorf("parsing configuration: %w", err)
	}
	if len(root.Content) == 0 {
		return doc, nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return doc, fmt.Errorf("parsing configuration: top level is not a mapping")
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i].Value, m.Content[i+1]
		switch key {
		case KeyExcluded:
			if err := val.Decode(&doc.Excluded); err != nil {
				return doc, fmt.Errorf("parsing %s: %w", key, err)
			}
		case KeyOnlyRules, KeyAnalyzerRules:
			var ids []string
			if err := val.Decode(&ids); err != nil {
				return doc, fmt.Errorf("parsing %s: %w", key, err)
			}
			entries := make([]Entry, 0, len(ids))
			for _, id := range ids {
				entries = append(entries, Entry{ID: id})
			}
			if key == KeyOnlyRules {
				doc.OnlyRules = entries
			} else {
				doc.AnalyzerRules = entries
			}
		default:
			if val.Kind != yaml.MappingNode || !hasThresholdKeys(val) {
				continue
			}
			var th Threshold
			if err := val.Decode(&th); err != nil {
				return doc, fmt.Errorf("parsing %s: %w", key, err)
			}
			if doc.Thresholds == nil {
				doc.Thresholds = make(map[string]Threshold)
			}
			doc.Thresholds[key] = th
		}
	}

	return doc, nil
}

func hasThresholdKeys(n *yaml.Node) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		switch n.Content[i].Value {
		case "warning", "error":
			return true
		}
	}
	return false
}

// managedKeys are replaced wholesale when merging into an existing file.
var managedKeys = map[string]struct{}{
	KeyExcluded:      {},
	KeyOnlyRules:     {},
	KeyAnalyzerRules: {},
	KeyOptInRules:    {},
	KeyDisabledRules: {},
}

// Merge keeps every key of an existing SwiftLint configuration except the
// rule lists, folds its excluded paths into d ahead of d's own, and appends
// the rendered document.
func Merge(existing []byte, d Document) (string, error) {
	if len(bytes.TrimSpace(existing)) == 0 {
		return Render(d), nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(existing, &root); err != nil {
		return "", fmt.Errorf("parsing existing configuration: %w", err)
	}
	if len(root.Content) == 0 {
		return Render(d), nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return "", fmt.Errorf("parsing existing configuration: top level is not a mapping")
	}

	kept := make([]*yaml.Node, 0, len(m.Content))
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		if key.Value == KeyExcluded {
			d = d.withExcluded(excludedPaths(value))
		}
		if _, ok := managedKeys[key.Value]; ok {
			continue
		}
		kept = append(kept, key, value)
	}
	rendered := Render(d)
	if len(kept) == 0 {
		return rendered, nil
	}
	m.Content = kept

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return "", fmt.Errorf("encoding existing configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding existing configuration: %w", err)
	}

	return buf.String() + "\n" + rendered, nil
}

// withExcluded returns a copy of d whose excluded list is paths followed by
// d's own entries, without duplicates.
func (d Document) withExcluded(paths []string) Document {
	seen := make(map[string]struct{}, len(paths)+len(d.Excluded))
	merged := make([]string, 0, len(paths)+len(d.Excluded))
	for _, p := range append(paths, d.Excluded...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	d.Excluded = merged
	return d
}

// excludedPaths accepts a sequence or a single path, as SwiftLint does.
func excludedPaths(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "" {
			return nil
		}
		return []string{n.Value}
	case yaml.SequenceNode:
		var out []string
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode && item.Value != "" {
				out = append(out, item.Value)
			}
		}
		return out
	}
	return nil
}

// WriteFile renders d to path.
func WriteFile(path string, d Document) error {
	return WriteText(path, Render(d))
}

// WriteText persists already rendered configuration text to path.
func WriteText(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	return nil
}
