package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-123")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "token-123", cfg.DiscordToken)
	assert.Equal(t, "quaver.json", cfg.StoragePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.SearchLimit)
	assert.Equal(t, 20, cfg.PreviewLimit)
	assert.Equal(t, 300*time.Second, cfg.SelectionTimeout)
	assert.Equal(t, 5*time.Second, cfg.ReconnectGrace)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-123")
	t.Setenv("SEARCH_LIMIT", "3")
	t.Setenv("SELECTION_TIMEOUT", "45s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.SearchLimit)
	assert.Equal(t, 45*time.Second, cfg.SelectionTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestNew_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := New()
	assert.Error(t, err)
}
