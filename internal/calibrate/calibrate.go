// Package calibrate drives swiftlint runs and feeds the diagnostics back into
// configuration documents.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/phobologic/swiftlint-autodetect/internal/config"
	"github.com/phobologic/swiftlint-autodetect/internal/diagnostic"
	"github.com/phobologic/swiftlint-autodetect/internal/model"
	"github.com/phobologic/swiftlint-autodetect/internal/rules"
)

// Severity levels used while searching for a threshold: every occurrence is
// reported as a warning carrying its own count.
const (
	calibrationWarning = 0
	calibrationError   = 1_000_000
)

// maxVerifyPasses bounds the re-runs performed by Autodetect with Verify.
const maxVerifyPasses = 5

var (
	// ErrRuleMismatch is wrapped by RuleMismatchError.
	ErrRuleMismatch = errors.New("rule identity mismatch")
	// ErrUnknownRule is wrapped by UnknownRuleError.
	ErrUnknownRule = errors.New("unknown rule")
	// ErrNoViolations is returned by Minimize when the rule does not fire.
	ErrNoViolations = errors.New("rule reports no violations")
	// ErrNotConverged is returned when a verification run still fails.
	ErrNotConverged = errors.New("configuration did not converge")
)

// RuleMismatchError reports a diagnostic for a rule other than the one under
// calibration, meaning the single-rule configuration did not isolate it.
type RuleMismatchError struct {
	Want, Got string
	Location  string // path:line:column of the offending diagnostic
}

func (e *RuleMismatchError) Error() string {
	return fmt.Sprintf("expected diagnostics for %s, got %s at %s", e.Want, e.Got, e.Location)
}

func (e *RuleMismatchError) Unwrap() error { return ErrRuleMismatch }

// UnknownRuleError reports a rule identifier missing from the registry.
type UnknownRuleError struct {
	RuleID string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule %q", e.RuleID)
}

func (e *UnknownRuleError) Unwrap() error { return ErrUnknownRule }

// Runner is the external swiftlint boundary.
type Runner interface {
	Rules(ctx context.Context) (string, error)
	Lint(ctx context.Context, configPath, target string) (string, error)
}

// Calibrator runs the calibration strategies. The configuration file at the
// configured path is written before and read by every lint run, so operations on
// one Calibrator are serialized.
type Calibrator struct {
	runner     Runner
	configPath string
	catalog    *rules.Catalog
	excluded   []string
	logger     *slog.Logger

	mu sync.Mutex
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithExcluded sets the paths written to the excluded key of every
// generated configuration.
func WithExcluded(paths []string) Option {
	return func(c *Calibrator) { c.excluded = paths }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Calibrator) { c.logger = l }
}

// WithCatalog shares an already constructed rule catalog.
func WithCatalog(cat *rules.Catalog) Option {
	return func(c *Calibrator) { c.catalog = cat }
}

// New returns a Calibrator that writes generated configurations to
// configPath and runs swiftlint through runner.
func New(runner Runner, configPath string, opts ...Option) *Calibrator {
	c := &Calibrator{
		runner:     runner,
		configPath: configPath,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		c.catalog = rules.NewCatalog(runner)
	}
	return c
}

// Registry returns the rule registry, loading it on first use.
func (c *Calibrator) Registry(ctx context.Context) (*model.Registry, error) {
	return c.catalog.Registry(ctx)
}

// lint writes doc to the configuration path and runs swiftlint on target.
func (c *Calibrator) lint(ctx context.Context, doc config.Document, target string) (string, error) {
	if err := config.WriteFile(c.configPath, doc); err != nil {
		return "", err
	}
	return c.runner.Lint(ctx, c.configPath, target)
}

// countViolations lints target with doc and tallies the general-form
// diagnostics per rule. Every rule must be known to reg.
func (c *Calibrator) countViolations(ctx context.Context, reg *model.Registry, doc config.Document, target string) (map[string]int, error) {
	out, err := c.lint(ctx, doc, target)
	if err != nil {
		return nil, err
	}
	violations, err := diagnostic.ParseAll(out, diagnostic.Parse)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, v := range violations {
		if _, ok := reg.Get(v.RuleID); !ok {
			return nil, &UnknownRuleError{RuleID: v.RuleID}
		}
		counts[v.RuleID]++
	}
	c.logger.Debug("parsed diagnostics", "violations", len(violations), "rules", len(counts))
	return counts, nil
}

// Sorted orders per-rule counts by descending count. Ties are ordered by
// ascending rule identifier.
func Sorted(counts map[string]int) []model.RuleCount {
	out := make([]model.RuleCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, model.RuleCount{RuleID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}

// Tally runs every rule against target and returns violation counts per
// rule, most frequent first.
func (c *Calibrator) Tally(ctx context.Context, target string) ([]model.RuleCount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg, err := c.Registry(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := c.countViolations(ctx, reg, config.Complete(reg, c.excluded), target)
	if err != nil {
		return nil, err
	}
	return Sorted(counts), nil
}
