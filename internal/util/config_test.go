package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "lemon.yaml", `
root: scripts
log:
  level: debug
  format: text
natives:
  sql:
    enabled: true
    drivers: [sqlite, postgres]
globals:
  GREETING: hello
  LIMIT: 3
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RootPath != "scripts" {
		t.Errorf("root = %q", cfg.RootPath)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log section = %+v", cfg.Log)
	}
	if !cfg.Natives.File.Enabled {
		t.Errorf("file natives should keep their default")
	}
	if !cfg.Natives.SQL.Enabled || len(cfg.Natives.SQL.Drivers) != 2 {
		t.Errorf("sql section = %+v", cfg.Natives.SQL)
	}
	if cfg.Globals["GREETING"] != "hello" || cfg.Globals["LIMIT"] != 3 {
		t.Errorf("globals = %v", cfg.Globals)
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "lemon.toml", `
[log]
level = "warn"

[natives.file]
enabled = false

[globals]
PI = 3.14
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "warn" || cfg.Natives.File.Enabled {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Globals["PI"] != 3.14 {
		t.Errorf("globals = %v", cfg.Globals)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown yaml field", "a.yaml", "logging: {}\n", "field logging not found"},
		{"unknown toml key", "a.toml", "[log]\nlevels = \"x\"\n", "unknown keys"},
		{"bad level", "a.yaml", "log:\n  level: loud\n", "log.level"},
		{"bad driver", "a.yaml", "natives:\n  sql:\n    drivers: [oracle]\n", "not linked in"},
		{"nested global", "a.yaml", "globals:\n  X: [1, 2]\n", "globals.X must be a scalar"},
		{"unsupported extension", "a.ini", "", "unsupported file type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.file, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "trace")
	t.Setenv(EnvLogFile, "/tmp/lemon.log")

	cfg, err := LoadConfig(writeFile(t, "empty.yaml", ""))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "trace" || cfg.Log.File != "/tmp/lemon.log" {
		t.Errorf("env overrides not applied: %+v", cfg.Log)
	}
}
