// Package settings loads user preferences from defaults, an optional JSON
// file and SWIFTLINT_AUTODETECT_* environment variables, in that order.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SWIFTLINT_AUTODETECT_"

// Settings are the user preferences shared by every command.
type Settings struct {
	// Binary is the swiftlint executable name or path.
	Binary string `koanf:"binary"`

	// ConfigPath is where generated configurations are written before each
	// swiftlint run. Empty means a private temporary file per run.
	ConfigPath string `koanf:"config_path"`

	// Timeout bounds each swiftlint invocation. Zero disables it.
	Timeout time.Duration `koanf:"timeout"`

	// AlwaysDisabledRules are commented out by generate even when passing.
	AlwaysDisabledRules []string `koanf:"always_disabled_rules"`

	LogLevel string `koanf:"log_level"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Binary:   "swiftlint",
		Timeout:  10 * time.Minute,
		LogLevel: "info",
	}
}

// DefaultPath returns the settings file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "swiftlint-autodetect", "config.json")
}

// Load layers defaults, the JSON file at path (skipped when path is empty or
// missing) and the environment given as KEY=VALUE pairs.
func Load(path string, environ []string) (Settings, error) {
	k := koanf.New(".")

	d := Defaults()
	if err := k.Load(confmap.Provider(map[string]any{
		"binary":                d.Binary,
		"config_path":           d.ConfigPath,
		"timeout":               d.Timeout.String(),
		"always_disabled_rules": []string{},
		"log_level":             d.LogLevel,
	}, "."), nil); err != nil {
		return Settings{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return Settings{}, fmt.Errorf("loading settings %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("settings %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
		EnvironFunc:   func() []string { return environ },
	}), nil); err != nil {
		return Settings{}, fmt.Errorf("loading environment: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

// transformEnv maps SWIFTLINT_AUTODETECT_ALWAYS_DISABLED_RULES=a,b to
// always_disabled_rules=[a b].
func transformEnv(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "always_disabled_rules" {
		var ids []string
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return key, ids
	}
	return key, value
}
