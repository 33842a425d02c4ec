package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	got := redact([]interface{}{"claim_id", "c1", "api_key", "sk-123", "Email", "a@b.c", "dangling"})
	assert.Equal(t, []interface{}{"claim_id", "c1", "api_key", "[REDACTED]", "Email", "[REDACTED]", "dangling"}, got)
}

func TestNew(t *testing.T) {
	log, err := New("development", "info")
	require.NoError(t, err)
	assert.NotNil(t, log.SugaredLogger)

	_, err = New("prod", "loud")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("ignored", "k", "v")
	log.With("claim_id", "c1").Warn("still ignored")
}
