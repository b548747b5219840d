package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/phobologic/swiftlint-autodetect/internal/report"
)

// runCount implements `swiftlint-autodetect count`, which lints a target with
// every rule enabled and prints violations per rule, most frequent first.
func runCount(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("swiftlint-autodetect count", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	var (
		table bool
		top   int
	)
	fs.BoolVar(&table, "table", false, "print a table with rule kind and fixability")
	fs.IntVar(&top, "n", 0, "show only the top N rules (0 = all)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: swiftlint-autodetect count [flags] [path]

Lint path (default ".") with every SwiftLint rule enabled and print the number
of violations per rule. Rules marked (*) are automatically fixable.

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

	tally, err := sess.calibrator.Tally(ctx, sess.target)
	if err != nil {
		return err
	}
	reg, err := sess.calibrator.Registry(ctx)
	if err != nil {
		return err
	}

	tally = report.Top(tally, top)
	if table {
		return report.Table(stdout, tally, reg)
	}
	return report.Lines(stdout, tally, reg, report.Style{Color: colorEnabled(stdout)})
}
