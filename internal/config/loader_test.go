package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STUDIO_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Video.PollInterval != 20*time.Second {
		t.Errorf("poll interval = %v, want 20s", cfg.Video.PollInterval)
	}
	if cfg.Video.MaxPolls != 60 {
		t.Errorf("max polls = %d, want 60", cfg.Video.MaxPolls)
	}
	if cfg.Refine.Model != "gpt-4" {
		t.Errorf("refine model = %q, want gpt-4", cfg.Refine.Model)
	}
	if cfg.Ledger.Path != "global_stats.json" {
		t.Errorf("ledger path = %q", cfg.Ledger.Path)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studio.yaml")
	content := `
server:
  port: 9090
ledger:
  path: ${STUDIO_TEST_LEDGER:/tmp/default.json}
video:
  output_dir: ${STUDIO_TEST_UNSET_DIR:videos}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDIO_TEST_LEDGER", "/data/stats.json")
	t.Setenv("STUDIO_VIDEO_MAX_POLLS", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Ledger.Path != "/data/stats.json" {
		t.Errorf("ledger path = %q, want expanded env value", cfg.Ledger.Path)
	}
	if cfg.Video.OutputDir != "videos" {
		t.Errorf("output dir = %q, want placeholder default", cfg.Video.OutputDir)
	}
	if cfg.Video.MaxPolls != 5 {
		t.Errorf("max polls = %d, want env override 5", cfg.Video.MaxPolls)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0},
		Ledger: LedgerConfig{Path: "x.json"},
		Video:  VideoConfig{PollInterval: time.Second, MaxPolls: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
}
