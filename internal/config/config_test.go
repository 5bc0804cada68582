package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StorePath == "" {
		t.Error("expected a default store path")
	}
	if cfg.Archive.Backend != "" {
		t.Errorf("default backend should be empty (local-only), got %q", cfg.Archive.Backend)
	}
	if cfg.Archive.CallTimeout != 30*time.Second {
		t.Errorf("wrong default call timeout: %v", cfg.Archive.CallTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sitesync.yaml")
	content := `
store_path: /data/records.db
archive:
  backend: dir
  dir: /mnt/shared/siteaudit
geocode:
  endpoint: https://nominatim.example.com/reverse
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StorePath != "/data/records.db" {
		t.Errorf("wrong store path: %q", cfg.StorePath)
	}
	if cfg.Archive.Backend != "dir" || cfg.Archive.Dir != "/mnt/shared/siteaudit" {
		t.Errorf("wrong archive config: %+v", cfg.Archive)
	}
	if cfg.Geocode.Endpoint != "https://nominatim.example.com/reverse" {
		t.Errorf("wrong geocode endpoint: %q", cfg.Geocode.Endpoint)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "archive:\n  backend: ftp\n"},
		{"gcs without bucket", "archive:\n  backend: gcs\n"},
		{"dir without path", "archive:\n  backend: dir\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sitesync.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit missing config file should error")
	}
}
