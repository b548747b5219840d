package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/phobologic/swiftlint-autodetect/internal/calibrate"
	"github.com/phobologic/swiftlint-autodetect/internal/discover"
	"github.com/phobologic/swiftlint-autodetect/internal/settings"
	"github.com/phobologic/swiftlint-autodetect/internal/swiftlint"
)

// commonFlags are accepted by every command. Zero values defer to settings.
type commonFlags struct {
	binary       string
	configPath   string
	settingsPath string
	timeout      time.Duration
	verbose      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.binary, "swiftlint", "", "swiftlint executable (default from settings, else \"swiftlint\" on PATH)")
	fs.StringVar(&c.configPath, "config-path", "", "write generated configurations here instead of a temporary file")
	fs.StringVar(&c.settingsPath, "settings", settings.DefaultPath(), "settings file")
	fs.DurationVar(&c.timeout, "timeout", 0, "limit for each swiftlint run (default from settings)")
	fs.BoolVar(&c.verbose, "v", false, "log swiftlint invocations to stderr")
}

// session is everything a command needs to calibrate one target.
type session struct {
	settings   settings.Settings
	logger     *slog.Logger
	target     string
	calibrator *calibrate.Calibrator
	tempConfig string
}

// open loads settings, locates swiftlint and validates target.
func (c *commonFlags) open(target string, stderr io.Writer) (*session, error) {
	st, err := settings.Load(c.settingsPath, os.Environ())
	if err != nil {
		return nil, err
	}
	if c.binary != "" {
		st.Binary = c.binary
	}
	if c.configPath != "" {
		st.ConfigPath = c.configPath
	}
	if c.timeout > 0 {
		st.Timeout = c.timeout
	}
	if c.verbose {
		st.LogLevel = "debug"
	}

	logger := newLogger(stderr, st.LogLevel)

	target, err = resolveTarget(target)
	if err != nil {
		return nil, err
	}
	files, err := discover.SwiftFiles(target)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", target, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Swift sources found in %s", target)
	}
	excluded, err := discover.Excluded(target)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", target, err)
	}
	logger.Debug("discovered sources", "target", target, "files", len(files), "excluded", excluded)

	bin, err := swiftlint.Locate(st.Binary)
	if err != nil {
		return nil, err
	}
	bin.Timeout = st.Timeout
	bin.Logger = logger

	s := &session{settings: st, logger: logger, target: target}

	configPath := st.ConfigPath
	if configPath == "" {
		f, err := os.CreateTemp("", "swiftlint-autodetect-*.yml")
		if err != nil {
			return nil, fmt.Errorf("creating temporary configuration: %w", err)
		}
		configPath = f.Name()
		_ = f.Close()
		s.tempConfig = configPath
	}

	s.calibrator = calibrate.New(bin, configPath,
		calibrate.WithExcluded(excluded),
		calibrate.WithLogger(logger),
	)
	return s, nil
}

// Close removes the temporary configuration, if any.
func (s *session) Close() {
	if s.tempConfig != "" {
		_ = os.Remove(s.tempConfig)
	}
}

func resolveTarget(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("path does not exist: %s", path)
		}
		return "", err
	}
	return abs, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// colorEnabled reports whether w is a terminal that accepts ANSI colors.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// parseFlags parses args with positionals allowed anywhere and enforces the
// positional count range.
func parseFlags(fs *flag.FlagSet, args []string, minArgs, maxArgs int) error {
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return &usageError{msg: err.Error()}
	}
	if fs.NArg() < minArgs || fs.NArg() > maxArgs {
		fs.Usage()
		return &usageError{msg: fmt.Sprintf("%s: wrong number of arguments", fs.Name())}
	}
	return nil
}
