package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := &Config{}

	if !cfg.FingerprintEnabled() {
		t.Error("fingerprinting should default to on")
	}
	if cfg.Workers() != 8 {
		t.Errorf("workers = %d, want 8", cfg.Workers())
	}
	if cfg.WatchDebounce() != 500*time.Millisecond {
		t.Errorf("debounce = %v, want 500ms", cfg.WatchDebounce())
	}
}

func TestOverrides(t *testing.T) {
	off := false
	cfg := &Config{Fingerprint: &off, ScanWorkers: 2, WatchDebounceMs: 1200}

	if cfg.FingerprintEnabled() {
		t.Error("fingerprinting should be off")
	}
	if cfg.Workers() != 2 {
		t.Errorf("workers = %d, want 2", cfg.Workers())
	}
	if cfg.WatchDebounce() != 1200*time.Millisecond {
		t.Errorf("debounce = %v, want 1.2s", cfg.WatchDebounce())
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	content := `database = "/tmp/test.db"
library_roots = ["/music", "/more-music"]
set_export_dir = "/sets"
exclude_paths = ["/music/trash"]
scan_workers = 4
fingerprint = false
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd) //nolint:errcheck

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database != "/tmp/test.db" {
		t.Errorf("database = %q", cfg.Database)
	}
	if len(cfg.LibraryRoots) != 2 || cfg.LibraryRoots[0] != "/music" {
		t.Errorf("roots = %v", cfg.LibraryRoots)
	}
	if cfg.SetExportDir != "/sets" {
		t.Errorf("set dir = %q", cfg.SetExportDir)
	}
	if cfg.Workers() != 4 {
		t.Errorf("workers = %d", cfg.Workers())
	}
	if cfg.FingerprintEnabled() {
		t.Error("fingerprint should be off")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandPath("~/music"); got != filepath.Join(home, "music") {
		t.Errorf("expandPath = %q", got)
	}
	if got := expandPath("/absolute"); got != "/absolute" {
		t.Errorf("expandPath = %q", got)
	}
	if got := expandPath(""); got != "" {
		t.Errorf("expandPath = %q", got)
	}
}
