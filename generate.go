package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/phobologic/swiftlint-autodetect/internal/calibrate"
	"github.com/phobologic/swiftlint-autodetect/internal/config"
)

// runGenerate implements `swiftlint-autodetect generate`, which prints a
// configuration that enables every rule the target already passes and
// comments out the rest.
func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("swiftlint-autodetect generate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	var (
		counts        bool
		minimum       int
		ignoreFixable bool
		verify        bool
		output        string
	)
	fs.BoolVar(&counts, "counts", false, "annotate disabled rules with their violation counts")
	fs.BoolVar(&counts, "c", false, "shorthand for --counts")
	fs.IntVar(&minimum, "minimum-violations", 1, "disable a rule only at this many violations")
	fs.IntVar(&minimum, "m", 1, "shorthand for --minimum-violations")
	fs.BoolVar(&ignoreFixable, "ignore-fixable", false, "keep automatically fixable rules enabled")
	fs.BoolVar(&verify, "verify", false, "re-run swiftlint until the configuration passes")
	fs.StringVar(&output, "output", "", "merge the rule lists into this YAML file instead of printing")
	fs.StringVar(&output, "o", "", "shorthand for --output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: swiftlint-autodetect generate [flags] [path]

Lint path (default ".") with every SwiftLint rule enabled and print a
configuration in which the failing rules are commented out. Uncomment a rule
once its violations are fixed.

With --output, the rule lists of an existing .swiftlint.yml are replaced and
every other key is kept.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := parseFlags(fs, args, 0, 1); err != nil {
		return err
	}
	target := "."
	if fs.NArg() > 0 {
		target = fs.Arg(0)
	}

	sess, err := common.open(target, stderr)
	if err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.calibrator.Autodetect(ctx, sess.target, calibrate.AutodetectOptions{
		MinimumViolations: minimum,
		IgnoreFixable:     ignoreFixable,
		AlwaysDisabled:    sess.settings.AlwaysDisabledRules,
		Counts:            counts,
		Verify:            verify,
	})
	if err != nil {
		return err
	}

	if output == "" {
		_, err := fmt.Fprint(stdout, config.Render(res.Document))
		return err
	}

	existing, err := os.ReadFile(output)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", output, err)
	}
	merged, err := config.Merge(existing, res.Document)
	if err != nil {
		return fmt.Errorf("merging into %s: %w", output, err)
	}
	if err := config.WriteText(output, merged); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stderr, "wrote %d enabled and %d disabled rules to %s\n",
		len(res.Document.Enabled()), len(res.Document.Disabled()), output)
	return nil
}
