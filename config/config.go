// Package config provides configuration loading and management for LeadScout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete LeadScout configuration
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Harness  HarnessConfig  `yaml:"harness"`
	Telegram TelegramConfig `yaml:"telegram"`
	NATS     NATSConfig     `yaml:"nats"`
	Poll     PollConfig     `yaml:"poll"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ModelConfig configures the completion model settings
type ModelConfig struct {
	// Name is the model to use for planning and recovery
	Name string `yaml:"name"`
	// Endpoint is the model API base URL
	Endpoint string `yaml:"endpoint"`
	// APIKey authenticates requests; also read from ANTHROPIC_API_KEY
	APIKey string `yaml:"api_key"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// HarnessConfig configures the executor service connection
type HarnessConfig struct {
	// URL is the harness base URL
	URL string `yaml:"url"`
	// Timeout applies to individual harness requests
	Timeout time.Duration `yaml:"timeout"`
}

// TelegramConfig configures the Telegram notification channel
type TelegramConfig struct {
	// BotToken authenticates against the Bot API (empty = disabled)
	BotToken string `yaml:"bot_token"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = disabled)
	URL string `yaml:"url"`
}

// PollConfig configures job status polling
type PollConfig struct {
	// Interval is the delay between successful polls
	Interval time.Duration `yaml:"interval"`
	// ErrorBackoff is the delay after a failed poll
	ErrorBackoff time.Duration `yaml:"error_backoff"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Name:     "claude-sonnet-4-20250514",
			Endpoint: "https://api.anthropic.com",
			APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
			Timeout:  2 * time.Minute,
		},
		Harness: HarnessConfig{
			URL:     "http://localhost:3001",
			Timeout: 30 * time.Second,
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		NATS: NATSConfig{
			URL: "",
		},
		Poll: PollConfig{
			Interval:     3 * time.Second,
			ErrorBackoff: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Harness.URL == "" {
		return fmt.Errorf("harness.url is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if c.Poll.ErrorBackoff <= 0 {
		return fmt.Errorf("poll.error_backoff must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.APIKey != "" {
		c.Model.APIKey = other.Model.APIKey
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// Harness
	if other.Harness.URL != "" {
		c.Harness.URL = other.Harness.URL
	}
	if other.Harness.Timeout != 0 {
		c.Harness.Timeout = other.Harness.Timeout
	}

	// Telegram
	if other.Telegram.BotToken != "" {
		c.Telegram.BotToken = other.Telegram.BotToken
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Poll
	if other.Poll.Interval != 0 {
		c.Poll.Interval = other.Poll.Interval
	}
	if other.Poll.ErrorBackoff != 0 {
		c.Poll.ErrorBackoff = other.Poll.ErrorBackoff
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
