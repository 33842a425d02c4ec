package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 0.8, cfg.Workflow.SimilarityThreshold)
	assert.Equal(t, 0.7, cfg.Workflow.ConfidenceThreshold)
	assert.Equal(t, 10, cfg.Workflow.TrendingThreshold)
	assert.Equal(t, 4*time.Hour, cfg.Workflow.SessionTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfigDir(t *testing.T) {
	assert.Equal(t, "/home/user/project/.factcheck", ConfigDir("/home/user/project"))
}

func TestConfigFilePath(t *testing.T) {
	assert.Equal(t, "/home/user/project/.factcheck/config.yaml", ConfigFilePath("/home/user/project"))
}

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "relative", path: "claims.db", expected: "/base/.factcheck/claims.db"},
		{name: "empty uses default", path: "", expected: "/base/.factcheck/factcheck.db"},
		{name: "absolute", path: "/var/lib/fc.db", expected: "/var/lib/fc.db"},
		{name: "memory", path: ":memory:", expected: ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.SQLite.Path = tt.path
			assert.Equal(t, tt.expected, cfg.DatabasePath("/base"))
		})
	}
}

func TestWriteDefaultAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")

	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	err := WriteDefault(dir)
	assert.Error(t, err, "second write must not clobber the file")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedder.APIKey)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Workflow.LockTTL)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factcheck init")
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DefaultConfigDir), 0755))
	data := []byte("workflow:\n  confidence_threshold: 1.5\n")
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), data, 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence_threshold")
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Workflow.Workers = 9
	cfg.Qdrant.Enabled = true

	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Workflow.Workers)
	assert.True(t, loaded.Qdrant.Enabled)
	assert.Equal(t, cfg.Workflow.SessionTTL, loaded.Workflow.SessionTTL)
}
