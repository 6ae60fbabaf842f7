// Package config loads the TOML configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Database string `koanf:"database"` // empty means the default XDG path

	// Folder rules. These seed the database the first time; after that
	// the database copy is authoritative and editable via the CLI.
	LibraryRoots []string `koanf:"library_roots"`
	SetExportDir string   `koanf:"set_export_dir"`
	ExcludePaths []string `koanf:"exclude_paths"`

	Fingerprint     *bool `koanf:"fingerprint"`       // content hashing on changed files (default: true)
	ScanWorkers     int   `koanf:"scan_workers"`      // parallel parse workers (default: 8)
	WatchDebounceMs int   `koanf:"watch_debounce_ms"` // watch event coalescing window (default: 500)
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Database = expandPath(cfg.Database)
	cfg.SetExportDir = expandPath(cfg.SetExportDir)
	for i, p := range cfg.LibraryRoots {
		cfg.LibraryRoots[i] = expandPath(p)
	}
	for i, p := range cfg.ExcludePaths {
		cfg.ExcludePaths[i] = expandPath(p)
	}
	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/songbook/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "songbook", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// FingerprintEnabled defaults to true: content hashing is what lets a
// touched-but-unchanged file produce zero derived writes.
func (c *Config) FingerprintEnabled() bool {
	if c.Fingerprint == nil {
		return true
	}
	return *c.Fingerprint
}

// Workers returns the scan worker count with the default applied.
func (c *Config) Workers() int {
	if c.ScanWorkers <= 0 {
		return 8
	}
	return c.ScanWorkers
}

// WatchDebounce returns the watch coalescing window with the default
// applied.
func (c *Config) WatchDebounce() time.Duration {
	if c.WatchDebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}
