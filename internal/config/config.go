// internal/config/config.go
//
// This package handles configuration and the .wellplan directory structure.
// Every directory wellplan runs in gets a .wellplan/ folder holding the
// config file and the logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// StateDirName is the name of the directory we create in the working directory
	StateDirName = ".wellplan"

	// DefaultBaseURL is where the planning service listens during local development.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single plan or chat round-trip.
	DefaultTimeout = 120 * time.Second
	// DefaultLogLines is how many journal lines the log panel shows.
	DefaultLogLines = 6

	maxLogLines = 50

	// BaseURLEnv overrides api.base_url.
	BaseURLEnv = "WELLPLAN_API_URL"
)

const defaultConfigYAML = `# wellplan client configuration
version: 1

api:
  # Root of the planning service. /api/plan and /api/chat are appended.
  base_url: http://localhost:8000
  # Per-request timeout as a Go duration. 0 disables it.
  timeout: 120s

ui:
  # Journal lines shown in the LOG panel. 0 hides the panel.
  log_lines: 6
`

// APIConfig points the client at the planning service.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout,omitempty"`
}

// UIConfig holds terminal display preferences.
type UIConfig struct {
	LogLines *int `yaml:"log_lines,omitempty"`
}

// FileConfig models .wellplan/config.yaml.
type FileConfig struct {
	Version int       `yaml:"version"`
	API     APIConfig `yaml:"api"`
	UI      UIConfig  `yaml:"ui"`
}

// Config holds the runtime configuration for wellplan.
type Config struct {
	// ProjectDir is the directory wellplan was started from
	ProjectDir string

	// StateDir is ProjectDir/.wellplan
	StateDir string

	File FileConfig

	timeout time.Duration
}

// InitDir creates the .wellplan directory structure in the given directory.
//
// Structure created:
// .wellplan/
// ├── config.yaml
// └── logs/        <- session journal and request traces
func InitDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, StateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	return ensureConfigFile(filepath.Join(stateDir, "config.yaml"))
}

// New loads .wellplan/config.yaml (if present) and applies the environment override.
func New(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, StateDirName),
		File:       defaultFileConfig(),
		timeout:    DefaultTimeout,
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	if value := strings.TrimSpace(os.Getenv(BaseURLEnv)); value != "" {
		if err := cfg.OverrideBaseURL(value); err != nil {
			return nil, fmt.Errorf("config: %s: %w", BaseURLEnv, err)
		}
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// JournalPath is the session journal shown in the LOG panel.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "session.log")
}

// BaseURL returns the planning service root.
func (c *Config) BaseURL() string {
	return c.File.API.BaseURL
}

// Timeout returns the per-request timeout. Zero means no timeout.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}

// LogLines returns how many journal lines to display.
func (c *Config) LogLines() int {
	if c.File.UI.LogLines == nil {
		return DefaultLogLines
	}
	return *c.File.UI.LogLines
}

// OverrideBaseURL replaces the service root for this run only.
func (c *Config) OverrideBaseURL(raw string) error {
	normalized := normalizeBaseURL(raw)
	if err := validateBaseURL(normalized); err != nil {
		return err
	}
	c.File.API.BaseURL = normalized
	return nil
}

func (c *Config) load() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed FileConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	timeout, err := parsed.validate()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.File = parsed
	c.timeout = timeout
	return nil
}

func defaultFileConfig() FileConfig {
	return FileConfig{
		Version: 1,
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout.String(),
		},
	}
}

func (fc *FileConfig) applyDefaults() {
	if fc.Version == 0 {
		fc.Version = 1
	}
	if strings.TrimSpace(fc.API.BaseURL) == "" {
		fc.API.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(fc.API.Timeout) == "" {
		fc.API.Timeout = DefaultTimeout.String()
	}
}

func (fc *FileConfig) normalize() {
	fc.API.BaseURL = normalizeBaseURL(fc.API.BaseURL)
	fc.API.Timeout = strings.TrimSpace(fc.API.Timeout)
}

func (fc *FileConfig) validate() (time.Duration, error) {
	if fc.Version < 1 {
		return 0, fmt.Errorf("config version must be >= 1")
	}
	if err := validateBaseURL(fc.API.BaseURL); err != nil {
		return 0, fmt.Errorf("api.base_url: %w", err)
	}
	timeout, err := parseTimeout(fc.API.Timeout)
	if err != nil {
		return 0, fmt.Errorf("api.timeout: %w", err)
	}
	if fc.UI.LogLines != nil && (*fc.UI.LogLines < 0 || *fc.UI.LogLines > maxLogLines) {
		return 0, fmt.Errorf("ui.log_lines must be between 0 and %d", maxLogLines)
	}
	return timeout, nil
}

func parseTimeout(value string) (time.Duration, error) {
	if value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func normalizeBaseURL(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), "/")
}

func validateBaseURL(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%q has no host", value)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
