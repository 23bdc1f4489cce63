package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when no Rainforest API key is configured
var ErrMissingAPIKey = errors.New("missing RAINFOREST_API_KEY (set it in .env.rainforest or your environment)")

// ConfigError reports an invalid configuration value. It is fatal to the run.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config holds all runtime settings
type Config struct {
	API         APIConfig         `yaml:"api"`
	HTTP        HTTPConfig        `yaml:"http"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
	LogLevel    string            `yaml:"log_level"`
}

// APIConfig configures the Rainforest data provider
type APIConfig struct {
	Key     string `yaml:"-"` // Never written to config files
	URL     string `yaml:"url"`
	Domain  string `yaml:"domain"`
	EnvFile string `yaml:"env_file"`
}

// HTTPConfig configures request behavior
type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	UserAgent   string        `yaml:"user_agent"`
	HTTPProxy   string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy  string        `yaml:"https_proxy,omitempty"`
}

// ConcurrencyConfig configures the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig configures report destinations
type OutputConfig struct {
	CSVPath      string `yaml:"csv_path"`
	TitleMaxTerm int    `yaml:"title_max_term"`
	TitleMaxCSV  int    `yaml:"title_max_csv"`
	MetricsFile  string `yaml:"metrics_file,omitempty"`
	Verbose      bool   `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:     "https://api.rainforestapi.com/request",
			Domain:  "amazon.co.uk",
			EnvFile: ".env.rainforest",
		},
		HTTP: HTTPConfig{
			Timeout:     30 * time.Second,
			Retries:     3,
			BackoffBase: time.Second,
			UserAgent:   "buybox/0.1 (+https://github.com/ppiankov/buybox)",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 1,
		},
		Output: OutputConfig{
			CSVPath:      "rainforest_out.csv",
			TitleMaxTerm: 60,
			TitleMaxCSV:  80,
		},
		LogLevel: "info",
	}
}

// Validate checks the settings required before any network activity
func (c *Config) Validate() error {
	c.API.Key = strings.TrimSpace(c.API.Key)
	if c.API.Key == "" {
		return &ConfigError{Field: "api.key", Err: ErrMissingAPIKey}
	}
	if c.API.URL == "" {
		return &ConfigError{Field: "api.url", Err: errors.New("must not be empty")}
	}
	if c.API.Domain == "" {
		return &ConfigError{Field: "api.domain", Err: errors.New("must not be empty")}
	}
	if c.HTTP.Retries < 0 {
		return &ConfigError{Field: "http.retries", Err: fmt.Errorf("must be >= 0, got %d", c.HTTP.Retries)}
	}
	if c.HTTP.Timeout <= 0 {
		return &ConfigError{Field: "http.timeout", Err: fmt.Errorf("must be positive, got %v", c.HTTP.Timeout)}
	}
	if c.Concurrency.Workers < 1 {
		c.Concurrency.Workers = 1
	}
	return nil
}
