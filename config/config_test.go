package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Endpoint != "https://api.anthropic.com" {
		t.Errorf("expected default endpoint https://api.anthropic.com, got %s", cfg.Model.Endpoint)
	}
	if cfg.Harness.URL != "http://localhost:3001" {
		t.Errorf("expected default harness URL http://localhost:3001, got %s", cfg.Harness.URL)
	}
	if cfg.Poll.Interval != 3*time.Second {
		t.Errorf("expected poll interval 3s, got %v", cfg.Poll.Interval)
	}
	if cfg.Poll.ErrorBackoff != 5*time.Second {
		t.Errorf("expected error backoff 5s, got %v", cfg.Poll.ErrorBackoff)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing model name",
			modify:  func(c *Config) { c.Model.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing model endpoint",
			modify:  func(c *Config) { c.Model.Endpoint = "" },
			wantErr: true,
		},
		{
			name:    "missing harness url",
			modify:  func(c *Config) { c.Harness.URL = "" },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.Poll.Interval = 0 },
			wantErr: true,
		},
		{
			name:    "negative error backoff",
			modify:  func(c *Config) { c.Poll.ErrorBackoff = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
model:
  name: "test-model"
  endpoint: "http://test:1234"
  timeout: 90s
harness:
  url: "http://harness:3001"
telegram:
  bot_token: "test-token"
nats:
  url: "nats://test:4222"
poll:
  interval: 1s
  error_backoff: 2s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Model.Name != "test-model" {
		t.Errorf("expected model test-model, got %s", cfg.Model.Name)
	}
	if cfg.Model.Endpoint != "http://test:1234" {
		t.Errorf("expected endpoint http://test:1234, got %s", cfg.Model.Endpoint)
	}
	if cfg.Model.Timeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Model.Timeout)
	}
	if cfg.Harness.URL != "http://harness:3001" {
		t.Errorf("expected harness URL http://harness:3001, got %s", cfg.Harness.URL)
	}
	if cfg.Telegram.BotToken != "test-token" {
		t.Errorf("expected bot token test-token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Poll.Interval != time.Second {
		t.Errorf("expected poll interval 1s, got %v", cfg.Poll.Interval)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Model: ModelConfig{
			Name: "override-model",
		},
		Harness: HarnessConfig{
			URL: "http://override:3001",
		},
	}

	base.Merge(override)

	if base.Model.Name != "override-model" {
		t.Errorf("expected model override-model, got %s", base.Model.Name)
	}
	// Endpoint should remain from base since override didn't set it
	if base.Model.Endpoint != "https://api.anthropic.com" {
		t.Errorf("expected endpoint to remain default, got %s", base.Model.Endpoint)
	}
	if base.Harness.URL != "http://override:3001" {
		t.Errorf("expected harness URL http://override:3001, got %s", base.Harness.URL)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Model.Name = "saved-model"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Model.Name != "saved-model" {
		t.Errorf("expected model saved-model, got %s", loaded.Model.Name)
	}
}
