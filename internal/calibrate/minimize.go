package calibrate

import (
	"context"
	"fmt"

	"github.com/phobologic/swiftlint-autodetect/internal/config"
	"github.com/phobologic/swiftlint-autodetect/internal/diagnostic"
	"github.com/phobologic/swiftlint-autodetect/internal/model"
)

// MinimizeOptions tune the threshold search.
type MinimizeOptions struct {
	// Verify re-runs swiftlint with the calibrated threshold and requires
	// that the rule no longer reports anything.
	Verify bool
}

// MinimizeResult is the calibrated single-rule configuration.
type MinimizeResult struct {
	Rule       string
	Threshold  config.Threshold
	Document   config.Document
	Violations int
}

// Minimize finds the smallest threshold for rule that lets every existing
// violation in target pass. The rule is run alone with a zero warning level
// so each violation reports its measured value; the threshold is the largest
// of those values.
func (c *Calibrator) Minimize(ctx context.Context, target, rule string, opts MinimizeOptions) (*MinimizeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg, err := c.Registry(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := reg.Get(rule); !ok {
		return nil, &UnknownRuleError{RuleID: rule}
	}

	probe := config.SingleRule(rule, config.Threshold{Warning: calibrationWarning, Error: calibrationError}, c.excluded)
	out, err := c.lint(ctx, probe, target)
	if err != nil {
		return nil, err
	}

	violations, err := diagnostic.ParseAll(out, func(line string) (model.Violation, error) {
		v, err := diagnostic.Parse(line)
		if err != nil {
			return v, err
		}
		if v.RuleID != rule {
			return v, &RuleMismatchError{
				Want:     rule,
				Got:      v.RuleID,
				Location: fmt.Sprintf("%s:%d:%d", v.Path, v.Line, v.Column),
			}
		}
		return diagnostic.WithCount(v, line, calibrationWarning)
	})
	if err != nil {
		return nil, err
	}
	if len(violations) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoViolations, rule)
	}

	limit := MaxCount(violations)
	th := config.Threshold{Warning: limit, Error: limit}
	doc := config.SingleRule(rule, th, c.excluded)
	c.logger.Debug("calibrated threshold", "rule", rule, "violations", len(violations), "threshold", limit)

	if opts.Verify {
		out, err := c.lint(ctx, doc, target)
		if err != nil {
			return nil, err
		}
		remaining, err := diagnostic.ParseAll(out, diagnostic.Parse)
		if err != nil {
			return nil, err
		}
		if len(remaining) > 0 {
			return nil, fmt.Errorf("%w: %s still reports %d violations at threshold %d",
				ErrNotConverged, rule, len(remaining), limit)
		}
	}

	return &MinimizeResult{
		Rule:       rule,
		Threshold:  th,
		Document:   doc,
		Violations: len(violations),
	}, nil
}

// MaxCount returns the largest embedded count, or 0 for no violations.
func MaxCount(violations []model.Violation) int {
	limit := 0
	for _, v := range violations {
		if v.Count > limit {
			limit = v.Count
		}
	}
	return limit
}
