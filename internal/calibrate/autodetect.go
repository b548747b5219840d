package calibrate

import (
	"context"
	"fmt"

	"github.com/phobologic/swiftlint-autodetect/internal/config"
	"github.com/phobologic/swiftlint-autodetect/internal/model"
)

// AutodetectOptions tune which failing rules get disabled.
type AutodetectOptions struct {
	// MinimumViolations is the count at which a failing rule is disabled.
	// Values below 1 mean 1.
	MinimumViolations int

	// IgnoreFixable keeps correctable rules enabled regardless of count.
	IgnoreFixable bool

	// AlwaysDisabled rules are disabled even when they pass.
	AlwaysDisabled []string

	// Counts annotates each failing rule with its violation count.
	Counts bool

	// Verify re-runs swiftlint with the calibrated document until no further
	// rule qualifies for disabling.
	Verify bool
}

// AutodetectResult is the calibrated configuration and what produced it.
type AutodetectResult struct {
	Document config.Document
	Tally    []model.RuleCount
	Runs     int
}

// Autodetect enables every known rule, lints target once and disables the
// rules that fail. The calibrated document is written back to the
// configuration path.
func (c *Calibrator) Autodetect(ctx context.Context, target string, opts AutodetectOptions) (*AutodetectResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg, err := c.Registry(ctx)
	if err != nil {
		return nil, err
	}

	doc := config.Complete(reg, c.excluded)
	counts, err := c.countViolations(ctx, reg, doc, target)
	if err != nil {
		return nil, err
	}
	runs := 1

	disable := failingRules(reg, counts, opts)
	disable = append(disable, opts.AlwaysDisabled...)
	doc = doc.Disable(disable...)
	c.logger.Debug("disabling failing rules", "count", len(disable))

	if opts.Verify {
		for {
			if runs > maxVerifyPasses {
				return nil, fmt.Errorf("%w after %d runs", ErrNotConverged, runs)
			}
			more, err := c.countViolations(ctx, reg, doc, target)
			if err != nil {
				return nil, err
			}
			runs++

			var newly []string
			for _, id := range failingRules(reg, more, opts) {
				if !isDisabled(doc, id) {
					newly = append(newly, id)
					counts[id] = more[id]
				}
			}
			if len(newly) == 0 {
				break
			}
			c.logger.Debug("verification found more failing rules", "rules", newly)
			doc = doc.Disable(newly...)
		}
	}

	if opts.Counts {
		doc = doc.Annotate(countNotes(reg, counts))
	}

	if err := config.WriteFile(c.configPath, doc); err != nil {
		return nil, err
	}

	return &AutodetectResult{Document: doc, Tally: Sorted(counts), Runs: runs}, nil
}

// failingRules returns the rules whose counts qualify them for disabling.
func failingRules(reg *model.Registry, counts map[string]int, opts AutodetectOptions) []string {
	minimum := opts.MinimumViolations
	if minimum < 1 {
		minimum = 1
	}

	var ids []string
	for _, rc := range Sorted(counts) {
		if rc.Count < minimum {
			continue
		}
		if opts.IgnoreFixable {
			if r, ok := reg.Get(rc.RuleID); ok && r.Correctable() {
				continue
			}
		}
		ids = append(ids, rc.RuleID)
	}
	return ids
}

func isDisabled(doc config.Document, id string) bool {
	for _, list := range [][]config.Entry{doc.OnlyRules, doc.AnalyzerRules} {
		for _, e := range list {
			if e.ID == id {
				return e.Disabled
			}
		}
	}
	return false
}

func countNotes(reg *model.Registry, counts map[string]int) map[string]string {
	notes := make(map[string]string, len(counts))
	for id, n := range counts {
		if n == 0 {
			continue
		}
		note := fmt.Sprintf("%d violations", n)
		if n == 1 {
			note = "1 violation"
		}
		if r, ok := reg.Get(id); ok && r.Correctable() {
			note += " (fixable)"
		}
		notes[id] = note
	}
	return notes
}
