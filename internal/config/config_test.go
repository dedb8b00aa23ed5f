package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Buffer.Size)
	assert.Equal(t, int8(0), cfg.Buffer.CounterMode)
	assert.True(t, cfg.Buffer.AllowOverflow)
	assert.Equal(t, 100, cfg.Buffer.ResetJournalSize)
	assert.Equal(t, 100, cfg.Buffer.DeletionJournalSize)
	assert.Equal(t, 0, cfg.Buffer.CompressRefsOverBytes)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, "*.json", cfg.Feed.Pattern)
	assert.Equal(t, 4, cfg.Feed.Workers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QDS_BUFFER_SIZE", "7")
	t.Setenv("QDS_BUFFER_COUNTER_MODE", "1")
	t.Setenv("QDS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Buffer.Size)
	assert.Equal(t, int8(1), cfg.Buffer.CounterMode)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Buffer: BufferConfig{Size: 100, CounterMode: 0, ResetJournalSize: 100, DeletionJournalSize: 100},
			Feed:   FeedConfig{Workers: 4},
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.Buffer.Size = 0
	assert.Error(t, c.Validate())

	c = base()
	c.Buffer.CounterMode = 2
	assert.Error(t, c.Validate())

	c = base()
	c.Buffer.ResetJournalSize = -1
	assert.Error(t, c.Validate())

	c = base()
	c.Feed.Workers = 0
	assert.Error(t, c.Validate())
}

func TestLoadEnvInvalidValueFailsValidation(t *testing.T) {
	t.Setenv("QDS_BUFFER_COUNTER_MODE", "5")

	_, err := Load()
	assert.Error(t, err)
}
