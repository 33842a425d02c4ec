package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Factcheck Configuration

llm:
  provider: openai
  model: gpt-4o-mini
  requests_per_second: 2
  burst: 4
  timeout: 60s
  # api_key: your-api-key (or set OPENAI_API_KEY env var)
  # base_url: https://api.openai.com/v1

embedder:
  provider: openai
  model: text-embedding-3-small

qdrant:
  enabled: false
  host: localhost
  port: 6334
  collection: factcheck_claims
  # api_key: your-api-key (for Qdrant Cloud)

sqlite:
  path: factcheck.db

redis:
  enabled: false
  url: redis://localhost:6379/0
  key_prefix: factcheck
  push_channel: factcheck:notifications

email:
  enabled: false
  from_name: Fact Check Desk
  # from_email: desk@example.org
  # api_key: your-api-key (or set SENDGRID_API_KEY env var)

workflow:
  similarity_threshold: 0.8
  semantic_threshold: 0.92
  confidence_threshold: 0.7
  trending_threshold: 10
  engagement_multiplier: 5
  session_ttl: 4h
  lock_ttl: 2m
  workers: 4
  max_attempts: 5
  retry_backoff: 5s
  refresh_interval: 15m
  stale_after: 30m

logging:
  mode: development
  level: info

metrics:
  addr: ":9090"
`

// WriteDefault creates the .factcheck directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigFilePath(basePath), data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Exists checks if a factcheck config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
