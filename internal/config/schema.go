// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for sigma.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/flemzord/sigma/internal/tracing"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log      LogConfig      `yaml:"log"`
	Bot      BotConfig      `yaml:"bot"`
	Tracing  tracing.Config `yaml:"tracing"`
	Security SecurityConfig `yaml:"security"`
	Cron     CronConfig     `yaml:"cron"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// SlogLevel parses Level. An empty level is info.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// BotConfig tunes message routing.
type BotConfig struct {
	// Greeting answers /start. Empty uses the built-in greeting.
	Greeting string `yaml:"greeting"`

	// Workers is the number of messages processed concurrently.
	Workers int `yaml:"workers"`

	// InboxSize bounds the queue between channels and workers.
	InboxSize int `yaml:"inbox_size"`
}

// SecurityConfig holds audit settings.
type SecurityConfig struct {
	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig controls the JSONL audit trail of gateway security events.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path of the audit file. Empty writes to stderr.
	Path string `yaml:"path"`
}

// CronConfig overrides maintenance job schedules.
type CronConfig struct {
	Checkpoint   string `yaml:"checkpoint"`
	SessionGauge string `yaml:"session_gauge"`
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}
