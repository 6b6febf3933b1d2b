// Package app provides the shared entry point for the sigma binary: config
// resolution, module wiring and the signal-driven main loop.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flemzord/sigma/internal/config"
)

const shutdownTimeout = 30 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.LoadOrDefault searches the standard locations and
	// falls back to the embedded default.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel, if non-nil, overrides log.level from the config.
	LogLevel *slog.Level
}

// Run loads configuration, starts all modules, and blocks until SIGINT or
// SIGTERM is received.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run with the shutdown trigger supplied by the caller.
func RunContext(ctx context.Context, params RunParams) error {
	cfg, source, err := config.LoadOrDefault(params.ConfigPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}

	rt, err := Build(ctx, cfg, Options{DataDir: dataDir, LogLevel: params.LogLevel})
	if err != nil {
		return err
	}
	logger := rt.Logger()
	logger.Info("starting sigma",
		"version", params.Version,
		"commit", params.Commit,
		"config", source,
		"data_dir", dataDir,
	)

	if err := rt.Start(); err != nil {
		rt.Stop(context.Background())
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	rt.Stop(stopCtx)
	logger.Info("shutdown complete")
	return nil
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/sigma if set, otherwise ~/.local/share/sigma per the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "sigma")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "sigma")
}
