package devserver

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultHost is the loopback interface used when no host override is provided.
	DefaultHost = "127.0.0.1"
	// DefaultPort matches the client's default base URL.
	DefaultPort = 8000
	// DefaultAllowedOrigin accepts any browser origin.
	DefaultAllowedOrigin = "*"
	// DefaultMaxBodyBytes limits request payloads to 1 MB.
	DefaultMaxBodyBytes int64 = 1 << 20
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 15 * time.Second
	DefaultIdleTimeout        = 60 * time.Second
)

// Settings captures runtime configuration for the development planning API.
type Settings struct {
	Host          string
	Port          int
	AllowedOrigin string
	MaxBodyBytes  int64
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// LoadSettings reads an optional .env file, then applies WELLPLAN_DEV_*
// environment overrides on top of the defaults.
func LoadSettings() Settings {
	_ = godotenv.Load()
	settings := DefaultSettings()
	settings.applyEnvOverrides()
	settings.normalize()
	return settings
}

// DefaultSettings returns the settings used when nothing is overridden.
func DefaultSettings() Settings {
	return Settings{
		Host:          DefaultHost,
		Port:          DefaultPort,
		AllowedOrigin: DefaultAllowedOrigin,
		MaxBodyBytes:  DefaultMaxBodyBytes,
		ReadTimeout:   DefaultReadTimeout,
		WriteTimeout:  DefaultWriteTimeout,
		IdleTimeout:   DefaultIdleTimeout,
	}
}

func (s *Settings) applyEnvOverrides() {
	if s == nil {
		return
	}
	if host := strings.TrimSpace(os.Getenv("WELLPLAN_DEV_HOST")); host != "" {
		s.Host = host
	}
	if port := strings.TrimSpace(os.Getenv("WELLPLAN_DEV_PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && isValidPort(parsed) {
			s.Port = parsed
		}
	}
	if origin := strings.TrimSpace(os.Getenv("WELLPLAN_DEV_ALLOWED_ORIGIN")); origin != "" {
		s.AllowedOrigin = origin
	}
}

func (s *Settings) normalize() {
	if s == nil {
		return
	}
	s.Host = strings.TrimSpace(s.Host)
	if s.Host == "" {
		s.Host = DefaultHost
	}
	// Port 0 is kept so tests can bind an ephemeral port.
	if s.Port < 0 || s.Port > 65535 {
		s.Port = DefaultPort
	}
	if strings.TrimSpace(s.AllowedOrigin) == "" {
		s.AllowedOrigin = DefaultAllowedOrigin
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}
