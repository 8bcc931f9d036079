// Package config loads application configuration with layered precedence:
// built-in defaults, then a YAML file, then RECALLKIT_ environment variables,
// then command-line flags. Later layers win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces the environment variables read by Load. A double
// underscore separates nesting levels: RECALLKIT_SESSION__MAX_RETRIES maps
// to session.max_retries.
const EnvPrefix = "RECALLKIT_"

// Config is the full application configuration.
type Config struct {
	Database  Database  `koanf:"database"`
	Scheduler Scheduler `koanf:"scheduler"`
	Session   Session   `koanf:"session"`
	Importer  Importer  `koanf:"importer"`
	Evaluate  Evaluate  `koanf:"evaluate"`
	Log       Log       `koanf:"log"`
}

// Database locates the sqlite store.
type Database struct {
	Path string `koanf:"path" validate:"required"`
}

// Scheduler tunes the spaced-repetition parameters.
type Scheduler struct {
	DefaultEase     float64 `koanf:"default_ease" validate:"gte=1.3"`
	MinEase         float64 `koanf:"min_ease" validate:"gte=1.3"`
	MaxIntervalDays int     `koanf:"max_interval_days" validate:"gte=1"`
}

// Session tunes the session controller.
type Session struct {
	MaxRetries   int           `koanf:"max_retries" validate:"gte=1"`
	RetryBackoff time.Duration `koanf:"retry_backoff" validate:"gt=0"`
	MaxCards     int           `koanf:"max_cards" validate:"gte=0"`
}

// Importer tunes source syncing.
type Importer struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

// Evaluate tunes the local answer matcher.
type Evaluate struct {
	Threshold float64 `koanf:"threshold" validate:"gt=0,lte=1"`
}

// Log selects the logging encoder.
type Log struct {
	Mode string `koanf:"mode" validate:"oneof=dev prod"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:  Database{Path: "recallkit.db"},
		Scheduler: Scheduler{DefaultEase: 2.5, MinEase: 1.3, MaxIntervalDays: 36500},
		Session:   Session{MaxRetries: 3, RetryBackoff: 200 * time.Millisecond},
		Importer:  Importer{ReposDir: "repos"},
		Evaluate:  Evaluate{Threshold: 0.6},
		Log:       Log{Mode: "dev"},
	}
}

// Load builds the configuration. path names an optional YAML file; a missing
// file is only an error when the path was set explicitly by flag or
// environment rather than defaulted. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("environment config: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("flag config: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Scheduler.MinEase > c.Scheduler.DefaultEase {
		return fmt.Errorf("invalid configuration: min_ease %.2f above default_ease %.2f",
			c.Scheduler.MinEase, c.Scheduler.DefaultEase)
	}
	return nil
}
