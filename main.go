// swiftlint-autodetect calibrates a SwiftLint configuration against an
// existing codebase so the rule set can be adopted incrementally.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
)

var version = "dev"

// usageError marks bad invocations; they exit with status 2.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err == nil || errors.Is(err, flag.ErrHelp) {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) {
		os.Exit(2)
	}
	os.Exit(1)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return &usageError{msg: "no command provided"}
	}

	switch args[0] {
	case "count":
		return runCount(ctx, args[1:], stdout, stderr)
	case "generate":
		return runGenerate(ctx, args[1:], stdout, stderr)
	case "minimize":
		return runMinimize(ctx, args[1:], stdout, stderr)
	case "version", "-V", "--version":
		_, _ = fmt.Fprintf(stdout, "swiftlint-autodetect %s\n", version)
		return nil
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return &usageError{msg: fmt.Sprintf("unknown command %q", args[0])}
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: swiftlint-autodetect <command> [flags] [path]

Commands:
  count [path]            count violations per SwiftLint rule
  generate [path]         print a configuration with failing rules commented out
  minimize <path> <rule>  find the smallest threshold that lets <rule> pass
  version                 print the version

Run 'swiftlint-autodetect <command> -h' for command flags.
`)
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg). Flags that
// take a value are looked up in fs. A "--" terminator is kept in front of the
// positionals.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append([]string{"--"}, append(positional, args[i+1:]...)...)
			break
		}
		if len(args[i]) > 1 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if takesValue(fs, args[i]) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

func takesValue(fs *flag.FlagSet, arg string) bool {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") {
		return false
	}
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
		return false
	}
	return true
}
