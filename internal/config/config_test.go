package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	stateDir := filepath.Join(projectDir, StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewDefaultsWhenMissing(t *testing.T) {
	t.Setenv(BaseURLEnv, "")
	cfg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if cfg.BaseURL() != DefaultBaseURL {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}
	if cfg.Timeout() != DefaultTimeout {
		t.Fatalf("timeout = %s", cfg.Timeout())
	}
	if cfg.LogLines() != DefaultLogLines {
		t.Fatalf("log lines = %d", cfg.LogLines())
	}
}

func TestInitDirWritesLoadableDefaults(t *testing.T) {
	t.Setenv(BaseURLEnv, "")
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, StateDirName, "logs")); err != nil {
		t.Fatalf("logs dir missing: %v", err)
	}
	cfg, err := New(projectDir)
	if err != nil {
		t.Fatalf("load generated config: %v", err)
	}
	if cfg.BaseURL() != DefaultBaseURL || cfg.Timeout() != DefaultTimeout || cfg.LogLines() != DefaultLogLines {
		t.Fatalf("generated config differs from defaults: %+v", cfg.File)
	}
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("second init must be a no-op: %v", err)
	}
}

func TestNewParsesYaml(t *testing.T) {
	t.Setenv(BaseURLEnv, "")
	projectDir := t.TempDir()
	writeConfig(t, projectDir, `
version: 1
api:
  base_url: " https://plans.example.com/v1/ "
  timeout: 45s
ui:
  log_lines: 0
`)
	cfg, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if cfg.BaseURL() != "https://plans.example.com/v1" {
		t.Fatalf("base url not normalized: %q", cfg.BaseURL())
	}
	if cfg.Timeout() != 45*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout())
	}
	if cfg.LogLines() != 0 {
		t.Fatalf("explicit zero log lines must be kept, got %d", cfg.LogLines())
	}
}

func TestNewValidation(t *testing.T) {
	cases := map[string]string{
		"scheme":    "api:\n  base_url: localhost:8000",
		"timeout":   "api:\n  timeout: soon",
		"negative":  "api:\n  timeout: -5s",
		"log lines": "ui:\n  log_lines: 500",
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Setenv(BaseURLEnv, "")
			projectDir := t.TempDir()
			writeConfig(t, projectDir, body)
			if _, err := New(projectDir); err == nil {
				t.Fatalf("expected validation error but got none")
			}
		})
	}
}

func TestEnvOverridesBaseURL(t *testing.T) {
	t.Setenv(BaseURLEnv, "http://10.0.0.5:9000/")
	cfg, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if cfg.BaseURL() != "http://10.0.0.5:9000" {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}

	t.Setenv(BaseURLEnv, "not a url")
	if _, err := New(t.TempDir()); err == nil {
		t.Fatalf("expected invalid env override to fail")
	}
}

func TestOverrideBaseURLKeepsOldValueOnError(t *testing.T) {
	t.Setenv(BaseURLEnv, "")
	cfg, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.OverrideBaseURL("ftp://nope"); err == nil {
		t.Fatalf("expected error")
	}
	if cfg.BaseURL() != DefaultBaseURL {
		t.Fatalf("base url changed on error: %q", cfg.BaseURL())
	}
}
