package config

import (
	"time"

	redisclient "github.com/vietddude/callcore/internal/infra/redis"
	"github.com/vietddude/callcore/internal/infra/rpc/batch"
	"github.com/vietddude/callcore/internal/infra/rpc/retry"
	"github.com/vietddude/callcore/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Retry    RetryConfig        `yaml:"retry"`
	Batch    BatchConfig        `yaml:"batch"`
	HTTP     HTTPConfig         `yaml:"http"`
	GRPC     GRPCConfig         `yaml:"grpc"`
	Probe    ProbeConfig        `yaml:"probe"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds the shared retry policy. Pointers distinguish an
// explicit zero from an unset key.
type RetryConfig struct {
	Enabled    *bool         `yaml:"enabled"`
	MaxRetries *int          `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	UseBackoff *bool         `yaml:"use_backoff"`
}

// Policy converts the config into a retry policy, or nil when disabled.
func (c RetryConfig) Policy() *retry.Policy {
	if c.Enabled != nil && !*c.Enabled {
		return nil
	}
	p := retry.DefaultPolicy
	if c.MaxRetries != nil {
		p.MaxRetries = *c.MaxRetries
	}
	if c.BaseDelay > 0 {
		p.BaseDelay = c.BaseDelay
	}
	if c.UseBackoff != nil {
		p.UseBackoff = *c.UseBackoff
	}
	return &p
}

// BatchConfig holds batch coordinator settings.
type BatchConfig struct {
	Concurrency      int           `yaml:"concurrency"`
	StopOnFirstError bool          `yaml:"stop_on_first_error"`
	RetryItems       bool          `yaml:"retry_items"`     // wrap each item in the retry policy
	FailedItemTTL    time.Duration `yaml:"failed_item_ttl"` // redis queue only
}

// Options converts the config into batch options.
func (c BatchConfig) Options() batch.Options {
	return batch.Options{
		Concurrency:      c.Concurrency,
		StopOnFirstError: c.StopOnFirstError,
	}
}

// HTTPConfig holds settings for the HTTP provider.
type HTTPConfig struct {
	Name      string            `yaml:"name"`
	BaseURL   string            `yaml:"base_url"`
	Timeout   time.Duration     `yaml:"timeout"`
	RateLimit float64           `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int               `yaml:"burst"`
	Headers   map[string]string `yaml:"headers"`
}

// GRPCConfig holds settings for the gRPC provider.
type GRPCConfig struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"` // health service name, "" = whole server
}

// ProbeConfig controls the periodic provider probes run by serve.
type ProbeConfig struct {
	Interval time.Duration `yaml:"interval"`
	Path     string        `yaml:"path"`
}
