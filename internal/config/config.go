// Package config provides centralized configuration management for the feed server.
// It loads configuration from built-in defaults, an optional YAML file and
// environment variables (in that order of increasing precedence), then
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// DefaultListingURL is the NEMweb directory listing for half-hourly
// operational demand forecasts.
const DefaultListingURL = "https://nemweb.com.au/Reports/Current/Operational_Demand/FORECAST_HH"

// Config holds all application configuration.
// All settings can be configured via environment variables or the YAML file
// named by CONFIG_FILE.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Greeting GreetingConfig `yaml:"greeting"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 90s)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"90s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UpstreamConfig holds settings for talking to the NEMweb portal.
// These are the only settings that are hot-reloaded from the config file.
type UpstreamConfig struct {
	// ListingURL is the directory listing that enumerates forecast archives.
	ListingURL string `yaml:"listing_url" env:"UPSTREAM_LISTING_URL" default:"https://nemweb.com.au/Reports/Current/Operational_Demand/FORECAST_HH"`

	// ArchiveExtension is the href suffix that marks an archive link (default: .zip)
	ArchiveExtension string `yaml:"archive_extension" env:"UPSTREAM_ARCHIVE_EXTENSION" default:".zip"`

	// ContentTypes are the accepted Content-Type values for archive downloads.
	ContentTypes []string `yaml:"content_types" env:"UPSTREAM_CONTENT_TYPES" default:"application/x-zip-compressed"`

	// Timeout bounds each outbound request, including reading the body (default: 30s)
	Timeout time.Duration `yaml:"timeout" env:"UPSTREAM_TIMEOUT" default:"30s"`

	// MaxArchiveBytes caps how much of an archive is read into memory (default: 64MB)
	MaxArchiveBytes int64 `yaml:"max_archive_bytes" env:"UPSTREAM_MAX_ARCHIVE_BYTES" default:"67108864"`

	// UserAgent is sent with every outbound request.
	UserAgent string `yaml:"user_agent" env:"UPSTREAM_USER_AGENT" default:"nemfeed/1.0"`

	// Selection picks the latest archive: listing or filename (default: listing)
	Selection string `yaml:"selection" env:"UPSTREAM_SELECTION" default:"listing"`

	// Layout is the CSV layout of the archived file: auto, plain or mms (default: auto)
	Layout string `yaml:"layout" env:"UPSTREAM_LAYOUT" default:"auto"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// GreetingConfig holds the text served by the greeting routes.
type GreetingConfig struct {
	// Root is the body of GET / (default: "Hello, I'm Jack")
	Root string `yaml:"root" env:"GREETING_ROOT" default:"Hello, I'm Jack"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
