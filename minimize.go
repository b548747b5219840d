package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/phobologic/swiftlint-autodetect/internal/calibrate"
	"github.com/phobologic/swiftlint-autodetect/internal/config"
)

// runMinimize implements `swiftlint-autodetect minimize`, which prints the
// smallest threshold configuration under which one rule passes.
func runMinimize(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("swiftlint-autodetect minimize", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	var verify bool
	fs.BoolVar(&verify, "verify", false, "re-run swiftlint to confirm the threshold passes")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: swiftlint-autodetect minimize [flags] <path> <rule>

Run a single threshold rule (for example function_body_length) over path and
print the configuration with the smallest warning and error levels that every
existing violation satisfies.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := parseFlags(fs, args, 2, 2); err != nil {
		return err
	}

	sess, err := common.open(fs.Arg(0), stderr)
	if err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.calibrator.Minimize(ctx, sess.target, fs.Arg(1), calibrate.MinimizeOptions{Verify: verify})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stderr, "%s: %d violations, threshold %d\n", res.Rule, res.Violations, res.Threshold.Warning)
	_, err = fmt.Fprint(stdout, config.Render(config.SingleRule(res.Rule, res.Threshold, nil)))
	return err
}
