// Package config loads pgdeps CLI configuration.
//
// Values are layered, lowest precedence first: built-in defaults, the YAML
// config file, PGDEPS_* environment variables, then explicitly set flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pgdeps/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	// Snapshot is the catalog snapshot file (.yaml, .yml or .json).
	Snapshot     string      `koanf:"snapshot"`
	Workers      int         `koanf:"workers"`
	OutputFormat string      `koanf:"output"`
	Verbose      bool        `koanf:"verbose"`
	LogLevel     string      `koanf:"log_level"`
	MaxDepth     int         `koanf:"max_depth"`
	Order        OrderConfig `koanf:"order"`
}

// OrderConfig controls the ordering commands.
type OrderConfig struct {
	// Exclude lists edge kinds removed before ordering, so that call cycles
	// between routines do not block a creation order for relations.
	Exclude []core.EdgeKind `koanf:"exclude"`
}

// Default configuration values.
const (
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel = "warn"
	DefaultMaxDepth = -1 // unbounded
)

// ConfigFileNames are searched in the working directory when no --config
// flag is given.
var ConfigFileNames = []string{"pgdeps.yaml", "pgdeps.yml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.OutputFormat) {
	case "", "auto", "text", "markdown", "md", "json":
	default:
		return fmt.Errorf("unknown output format %q (want auto, text, markdown or json)", c.OutputFormat)
	}
	return nil
}

// RequireSnapshot fails when no snapshot is configured.
func (c *Config) RequireSnapshot() error {
	if c.Snapshot == "" {
		return fmt.Errorf("no snapshot given\nHint: pass --snapshot catalog.yaml or set snapshot in pgdeps.yaml")
	}
	return nil
}

// ParseLogLevel converts a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
