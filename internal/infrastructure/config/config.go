// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for factcheck configuration.
	DefaultConfigDir = ".factcheck"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the SQLite file used when sqlite.path is unset.
	DefaultDatabaseFile = "factcheck.db"
)

// Config holds static infrastructure and workflow configuration (read-only after init).
type Config struct {
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Redis    RedisConfig    `yaml:"redis,omitempty"`
	Email    EmailConfig    `yaml:"email,omitempty"`
	Workflow WorkflowConfig `yaml:"workflow,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// LLMConfig holds configuration for the LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	// BaseURL points the client at an OpenAI-compatible endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
	// RequestsPerSecond caps outgoing model calls across all workers.
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	Burst             int           `yaml:"burst,omitempty"`
	Timeout           time.Duration `yaml:"timeout,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant vector database.
// Semantic duplicate lookup is skipped when Enabled is false.
type QdrantConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database. Relative paths resolve
	// against the .factcheck directory.
	Path string `yaml:"path,omitempty"`
}

// RedisConfig holds configuration for the Redis job queue, locks and push channel.
// In-process queue and lock implementations are used when Enabled is false.
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url,omitempty"`
	KeyPrefix   string `yaml:"key_prefix,omitempty"`
	PushChannel string `yaml:"push_channel,omitempty"`
}

// EmailConfig holds configuration for the SendGrid email channel.
type EmailConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key,omitempty"`
	FromEmail string `yaml:"from_email,omitempty"`
	FromName  string `yaml:"from_name,omitempty"`
	// BaseURL overrides the SendGrid API host.
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// WorkflowConfig holds the tunables of the verification workflow.
type WorkflowConfig struct {
	SimilarityThreshold  float64       `yaml:"similarity_threshold,omitempty"`
	SemanticThreshold    float64       `yaml:"semantic_threshold,omitempty"`
	ConfidenceThreshold  float64       `yaml:"confidence_threshold,omitempty"`
	TrendingThreshold    int           `yaml:"trending_threshold,omitempty"`
	EngagementMultiplier float64       `yaml:"engagement_multiplier,omitempty"`
	SessionTTL           time.Duration `yaml:"session_ttl,omitempty"`
	LockTTL              time.Duration `yaml:"lock_ttl,omitempty"`
	Workers              int           `yaml:"workers,omitempty"`
	MaxAttempts          int           `yaml:"max_attempts,omitempty"`
	RetryBackoff         time.Duration `yaml:"retry_backoff,omitempty"`
	RefreshInterval      time.Duration `yaml:"refresh_interval,omitempty"`
	// StaleAfter is how long a claim may sit in pending before it is re-enqueued.
	StaleAfter time.Duration `yaml:"stale_after,omitempty"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Mode  string `yaml:"mode,omitempty"`
	Level string `yaml:"level,omitempty"`
}

// MetricsConfig holds the listen address for the /metrics endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           60 * time.Second,
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "factcheck_claims",
		},
		SQLite: SQLiteConfig{
			Path: DefaultDatabaseFile,
		},
		Redis: RedisConfig{
			URL:         "redis://localhost:6379/0",
			KeyPrefix:   "factcheck",
			PushChannel: "factcheck:notifications",
		},
		Email: EmailConfig{
			FromName: "Fact Check Desk",
		},
		Workflow: WorkflowConfig{
			SimilarityThreshold:  0.8,
			SemanticThreshold:    0.92,
			ConfidenceThreshold:  0.7,
			TrendingThreshold:    10,
			EngagementMultiplier: 5,
			SessionTTL:           4 * time.Hour,
			LockTTL:              2 * time.Minute,
			Workers:              4,
			MaxAttempts:          5,
			RetryBackoff:         5 * time.Second,
			RefreshInterval:      15 * time.Minute,
			StaleAfter:           30 * time.Minute,
		},
		Logging: LoggingConfig{
			Mode:  "development",
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load loads configuration from the .factcheck directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'factcheck init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		c.Redis.URL = url
		c.Redis.Enabled = true
	}
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		if c.Email.APIKey == "" {
			c.Email.APIKey = key
		}
	}
}

// Validate checks that workflow tunables are in range.
func (c *Config) Validate() error {
	w := c.Workflow
	if w.SimilarityThreshold <= 0 || w.SimilarityThreshold > 1 {
		return fmt.Errorf("workflow.similarity_threshold must be in (0, 1], got %v", w.SimilarityThreshold)
	}
	if w.ConfidenceThreshold < 0 || w.ConfidenceThreshold > 1 {
		return fmt.Errorf("workflow.confidence_threshold must be in [0, 1], got %v", w.ConfidenceThreshold)
	}
	if w.TrendingThreshold < 1 {
		return fmt.Errorf("workflow.trending_threshold must be positive, got %d", w.TrendingThreshold)
	}
	if w.Workers < 1 {
		return fmt.Errorf("workflow.workers must be positive, got %d", w.Workers)
	}
	if w.MaxAttempts < 1 {
		return fmt.Errorf("workflow.max_attempts must be positive, got %d", w.MaxAttempts)
	}
	if c.Email.Enabled && c.Email.FromEmail == "" {
		return fmt.Errorf("email.from_email is required when email is enabled")
	}
	return nil
}

// ConfigDir returns the path to the .factcheck config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// DatabasePath resolves the SQLite path. ":memory:" and absolute paths are
// returned unchanged.
func (c *Config) DatabasePath(basePath string) string {
	p := c.SQLite.Path
	if p == "" {
		p = DefaultDatabaseFile
	}
	if p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, DefaultConfigDir, p)
}
