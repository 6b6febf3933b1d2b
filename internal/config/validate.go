package config

import (
	"errors"
	"fmt"

	"github.com/flemzord/sigma/internal/core"
)

// RequiredModules must each have a configuration entry: a relay needs a
// completion backend, a chat transport and a session store.
var RequiredModules = []string{"provider.gemini", "channel.telegram", "memory.sqlite"}

// Validate checks the structural validity of a Config: the version field,
// known module IDs, the presence of RequiredModules and the ambient
// sections. All problems are reported together.
func Validate(cfg *Config) error {
	return validate(cfg, RequiredModules)
}

func validate(cfg *Config, required []string) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	for _, id := range required {
		if _, exists := cfg.Modules[id]; !exists {
			errs = append(errs, fmt.Errorf("config: module %q requires configuration but has no entry", id))
		}
	}

	if _, err := cfg.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", cfg.Log.Format))
	}

	if cfg.Bot.Workers < 0 {
		errs = append(errs, errors.New("config: bot.workers must not be negative"))
	}
	if cfg.Bot.InboxSize < 0 {
		errs = append(errs, errors.New("config: bot.inbox_size must not be negative"))
	}

	if err := cfg.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	return errors.Join(errs...)
}
