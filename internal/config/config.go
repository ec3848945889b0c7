// Package config loads the server configuration from YAML and the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the full server configuration.
type Config struct {
	Name        string `yaml:"name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"` // empty disables the separate metrics listener

	Storage   StorageConfig   `yaml:"storage"`
	Ephemeris EphemerisConfig `yaml:"ephemeris"`
	Cache     CacheConfig     `yaml:"cache"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
}

// StorageConfig selects the cache backend and the optional run log.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	SQLitePath    string `yaml:"sqlite_path"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional synthesis run log
}

// EphemerisConfig configures the ephemeris gateway client.
type EphemerisConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	UseStub    bool          `yaml:"use_stub"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// CacheConfig configures the cache tier.
type CacheConfig struct {
	UserTransitTTL  time.Duration `yaml:"user_transit_ttl"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	StaleWait       time.Duration `yaml:"stale_wait"`
}

// SynthesisConfig configures the theme synthesizer.
type SynthesisConfig struct {
	Threshold    float64 `yaml:"threshold"`
	MaxSecondary int     `yaml:"max_secondary"`
	HorizonDays  int     `yaml:"horizon_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Name:        "transit-synth",
		Host:        "0.0.0.0",
		Port:        8080,
		LogLevel:    "INFO",
		MetricsAddr: ":9090",
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "transit-synth.db",
		},
		Ephemeris: EphemerisConfig{
			Endpoint:   "http://localhost:8000",
			Timeout:    8 * time.Second,
			MaxRetries: 2,
			RetryDelay: 250 * time.Millisecond,
		},
		Cache: CacheConfig{
			UserTransitTTL:  24 * time.Hour,
			UpstreamTimeout: 8 * time.Second,
			StaleWait:       300 * time.Millisecond,
		},
		Synthesis: SynthesisConfig{
			Threshold:    40,
			MaxSecondary: 3,
			HorizonDays:  90,
		},
	}
}

// Load reads the YAML file at path over Default, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides file values with set environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("EPHEMERIS_ENDPOINT"); v != "" {
		c.Ephemeris.Endpoint = v
	}
	if v := os.Getenv("EPHEMERIS_USE_STUB"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EPHEMERIS_USE_STUB %q: %w", v, err)
		}
		c.Ephemeris.UseStub = b
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_ADDR %q: %w", v, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid HTTP_ADDR port %q: %w", port, err)
		}
		if host != "" {
			c.Host = host
		}
		c.Port = p
	}
	return nil
}

// Validate performs configuration validation.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1 and 65535)", c.Port)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn cannot be empty for postgres backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite_path cannot be empty for sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (must be memory, postgres or sqlite)", c.Storage.Backend)
	}

	if !c.Ephemeris.UseStub && c.Ephemeris.Endpoint == "" {
		return fmt.Errorf("ephemeris endpoint cannot be empty unless use_stub is set")
	}
	if c.Ephemeris.Timeout <= 0 {
		return fmt.Errorf("ephemeris timeout must be greater than 0")
	}
	if c.Ephemeris.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Ephemeris.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	if c.Cache.UserTransitTTL <= 0 {
		return fmt.Errorf("user transit ttl must be greater than 0")
	}
	if c.Cache.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be greater than 0")
	}
	if c.Cache.StaleWait <= 0 {
		return fmt.Errorf("stale wait must be greater than 0")
	}

	if c.Synthesis.Threshold <= 0 || c.Synthesis.Threshold > 100 {
		return fmt.Errorf("synthesis threshold must be within (0, 100], got %v", c.Synthesis.Threshold)
	}
	if c.Synthesis.MaxSecondary < 0 {
		return fmt.Errorf("max secondary cannot be negative")
	}
	if c.Synthesis.HorizonDays < 1 {
		return fmt.Errorf("horizon days must be at least 1")
	}

	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Debug reports whether debug logging is requested.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "DEBUG")
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment.
// Existing variables are never overridden; a missing file is not an error.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
