package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/callcore/internal/infra/rpc/batch"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	_ = cfg.applyDefaults()
	return &cfg
}

func (cfg *AppConfig) applyDefaults() error {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Retry.MaxRetries != nil && *cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", *cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must be positive, got %s", cfg.Retry.BaseDelay)
	}

	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = batch.DefaultOptions.Concurrency
	}
	if cfg.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must be >= 1, got %d", cfg.Batch.Concurrency)
	}

	if cfg.HTTP.Name == "" {
		cfg.HTTP.Name = "http"
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}
	if cfg.GRPC.Name == "" {
		cfg.GRPC.Name = "grpc"
	}

	if cfg.Probe.Interval == 0 {
		cfg.Probe.Interval = 30 * time.Second
	}
	if cfg.Probe.Path == "" {
		cfg.Probe.Path = "/health"
	}
	return nil
}
