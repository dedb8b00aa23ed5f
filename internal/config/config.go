// Package config loads the qds-buffer configuration from file and
// environment via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the qds-buffer tooling.
type Config struct {
	Buffer BufferConfig
	Log    LogConfig
	Feed   FeedConfig
}

// BufferConfig parameterizes the data source.
type BufferConfig struct {
	Size                  int   // Entry capacity (default: 100)
	CounterMode           int8  // 0 = strictly increasing ids, 1 = arbitrary ids
	AllowOverflow         bool  // Evict oldest unlocked entries when full (default: true)
	ResetJournalSize      int   // Reset journal cap (default: 100)
	DeletionJournalSize   int   // Deletion journal cap (default: 100)
	CompressRefsOverBytes int   // zstd-compress reference content at or above this size; 0 disables
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

// FeedConfig controls the feed subcommand.
type FeedConfig struct {
	Dir     string // Directory holding data-set files
	Pattern string // Glob for data-set files (default: *.json)
	Workers int    // Parallel validation workers (default: 4)
}

// Load loads configuration from environment and config file.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("QDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("qds-buffer")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/qds-buffer/")
	v.AddConfigPath("$HOME/.qds-buffer/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults.
	}

	cfg := &Config{
		Buffer: BufferConfig{
			Size:                  v.GetInt("buffer.size"),
			CounterMode:           int8(v.GetInt("buffer.counter_mode")),
			AllowOverflow:         v.GetBool("buffer.allow_overflow"),
			ResetJournalSize:      v.GetInt("buffer.reset_journal_size"),
			DeletionJournalSize:   v.GetInt("buffer.deletion_journal_size"),
			CompressRefsOverBytes: v.GetInt("buffer.compress_refs_over_bytes"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Feed: FeedConfig{
			Dir:     v.GetString("feed.dir"),
			Pattern: v.GetString("feed.pattern"),
			Workers: v.GetInt("feed.workers"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the data source cannot run with.
func (c *Config) Validate() error {
	if c.Buffer.Size <= 0 {
		return fmt.Errorf("buffer.size must be positive, got %d", c.Buffer.Size)
	}
	if c.Buffer.CounterMode != 0 && c.Buffer.CounterMode != 1 {
		return fmt.Errorf("buffer.counter_mode must be 0 or 1, got %d", c.Buffer.CounterMode)
	}
	if c.Buffer.ResetJournalSize <= 0 {
		return fmt.Errorf("buffer.reset_journal_size must be positive, got %d", c.Buffer.ResetJournalSize)
	}
	if c.Buffer.DeletionJournalSize <= 0 {
		return fmt.Errorf("buffer.deletion_journal_size must be positive, got %d", c.Buffer.DeletionJournalSize)
	}
	if c.Feed.Workers <= 0 {
		return fmt.Errorf("feed.workers must be positive, got %d", c.Feed.Workers)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("buffer.size", 100)
	v.SetDefault("buffer.counter_mode", 0)
	v.SetDefault("buffer.allow_overflow", true)
	v.SetDefault("buffer.reset_journal_size", 100)
	v.SetDefault("buffer.deletion_journal_size", 100)
	v.SetDefault("buffer.compress_refs_over_bytes", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("feed.dir", ".")
	v.SetDefault("feed.pattern", "*.json")
	v.SetDefault("feed.workers", 4)
}
