// Package config loads engine settings from TOML files.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Equality modes for matching child schemas.
const (
	EqualityText = "text"
	EqualityDeep = "deep"
)

// Config holds the settings of an engine and its store.
type Config struct {
	LogLevel   string     `toml:"log_level"`
	Language   string     `toml:"language"`
	Equality   string     `toml:"equality"`
	Repository Repository `toml:"repository"`
	Validation Validation `toml:"validation"`
}

// Repository lists schema directories loaded into the custom repository.
type Repository struct {
	Dirs []string `toml:"dirs"`
}

// Validation configures the validator.
type Validation struct {
	Draft int `toml:"draft"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:   "info",
		Language:   "en",
		Equality:   EqualityText,
		Validation: Validation{Draft: 7},
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text on top of Default. Unknown keys are rejected.
func Parse(text string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Language {
	case "en", "ja":
	default:
		return fmt.Errorf("language: unsupported %q", c.Language)
	}
	switch c.Equality {
	case EqualityText, EqualityDeep:
	default:
		return fmt.Errorf("equality: unsupported %q", c.Equality)
	}
	switch c.Validation.Draft {
	case 4, 6, 7, 2019, 2020:
	default:
		return fmt.Errorf("validation.draft: unsupported %d", c.Validation.Draft)
	}
	return nil
}

// Level returns the parsed log level (info when unset or invalid).
func (c Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}
