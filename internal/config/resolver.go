package config

import (
	"os"
	"path/filepath"
	"slices"
)

// FileName is the configuration file name looked up in each directory.
const FileName = "sigma.yaml"

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SearchPaths lists candidate configuration files in lookup order:
// $XDG_CONFIG_HOME/sigma/sigma.yaml, ~/.config/sigma/sigma.yaml, ./sigma.yaml.
func SearchPaths() []string {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "sigma", FileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "sigma", FileName))
	}
	return append(candidates, FileName)
}

// Find returns the first existing file from SearchPaths, or "" when none
// exists and the embedded default applies.
func Find() string {
	for _, path := range SearchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadOrDefault loads path when set, otherwise the first file found by
// Find, otherwise the embedded default. It returns the source used.
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		path = Find()
	}
	if path == "" {
		cfg, err := LoadDefault()
		return cfg, DefaultSource, err
	}
	cfg, err := Load(path)
	return cfg, path, err
}
