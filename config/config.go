package config

import (
	"log/slog"

	"github.com/spf13/viper"

	"chime/engine"
)

// Config holds all configuration for the application
type Config struct {
	// Audio output configuration
	Audio AudioConfig `mapstructure:"audio"`

	// Voice pool sizing
	Pool PoolConfig `mapstructure:"pool"`

	// Per-category playback policy, keyed by category name
	Categories map[string]CategoryConfig `mapstructure:"categories"`

	// Clip catalog location
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// AudioConfig holds output-device configuration
type AudioConfig struct {
	SampleRate   int     `mapstructure:"sample_rate"`
	BufferMs     int     `mapstructure:"buffer_ms"`
	MasterVolume float64 `mapstructure:"master_volume"`
	MasterMuted  bool    `mapstructure:"master_muted"`
	// Silent swaps the speaker for a no-op output; useful headless.
	Silent bool `mapstructure:"silent"`
}

// PoolConfig bounds the voice pool per kind
type PoolConfig struct {
	MaxBufferVoices int `mapstructure:"max_buffer_voices"`
	MaxStreamVoices int `mapstructure:"max_stream_voices"`
	Prewarm         int `mapstructure:"prewarm"`
}

// CategoryConfig holds one category's policy
type CategoryConfig struct {
	Volume          float64 `mapstructure:"volume"`
	Muted           bool    `mapstructure:"muted"`
	MaxVoices       int     `mapstructure:"max_voices"`
	AllowDuplicates bool    `mapstructure:"allow_duplicates"`
}

// CatalogConfig points at the clip catalog file
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	// Set defaults
	viper.SetDefault("audio.sample_rate", 44100)
	viper.SetDefault("audio.buffer_ms", 100)
	viper.SetDefault("audio.master_volume", 1.0)
	viper.SetDefault("pool.max_buffer_voices", 24)
	viper.SetDefault("pool.max_stream_voices", 2)
	viper.SetDefault("pool.prewarm", 4)
	viper.SetDefault("catalog.path", "catalog.yaml")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("categories.music", map[string]any{
		"volume": 1.0, "max_voices": 1, "allow_duplicates": false,
	})
	viper.SetDefault("categories.sfx", map[string]any{
		"volume": 1.0, "max_voices": 16, "allow_duplicates": true,
	})
	viper.SetDefault("categories.ui", map[string]any{
		"volume": 1.0, "max_voices": 4, "allow_duplicates": true,
	})
	viper.SetDefault("categories.speech", map[string]any{
		"volume": 1.0, "max_voices": 2, "allow_duplicates": false,
	})
	viper.SetDefault("categories.ambient", map[string]any{
		"volume": 0.8, "max_voices": 4, "allow_duplicates": false,
	})

	// Read config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.chime")
	viper.AddConfigPath("/etc/chime")

	// Allow environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CHIME")

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return &ConfigError{Field: "audio.sample_rate", Message: "must be positive"}
	}
	if c.Audio.BufferMs <= 0 {
		return &ConfigError{Field: "audio.buffer_ms", Message: "must be positive"}
	}
	if c.Audio.MasterVolume < 0 || c.Audio.MasterVolume > 1 {
		return &ConfigError{Field: "audio.master_volume", Message: "must be in [0,1]"}
	}
	if c.Pool.MaxBufferVoices <= 0 {
		return &ConfigError{Field: "pool.max_buffer_voices", Message: "must be positive"}
	}
	if c.Pool.MaxStreamVoices <= 0 {
		return &ConfigError{Field: "pool.max_stream_voices", Message: "must be positive"}
	}
	if c.Pool.Prewarm < 0 {
		return &ConfigError{Field: "pool.prewarm", Message: "must not be negative"}
	}
	if c.Catalog.Path == "" {
		return &ConfigError{Field: "catalog.path", Message: "catalog path is required"}
	}
	for name, cat := range c.Categories {
		if _, err := engine.ParseCategory(name); err != nil {
			return &ConfigError{Field: "categories." + name, Message: "unknown category"}
		}
		if cat.Volume < 0 || cat.Volume > 1 {
			return &ConfigError{Field: "categories." + name + ".volume", Message: "must be in [0,1]"}
		}
		if cat.MaxVoices < 0 {
			return &ConfigError{Field: "categories." + name + ".max_voices", Message: "must not be negative"}
		}
	}
	return nil
}

// Policy builds the engine policy described by this configuration.
func (c *Config) Policy() (*engine.Policy, error) {
	p := engine.NewPolicy()
	p.SetMasterVolume(c.Audio.MasterVolume)
	p.SetMasterMuted(c.Audio.MasterMuted)
	for name, cat := range c.Categories {
		parsed, err := engine.ParseCategory(name)
		if err != nil {
			return nil, &ConfigError{Field: "categories." + name, Message: "unknown category"}
		}
		p.SetCategory(parsed, engine.CategoryConfig{
			Volume:          cat.Volume,
			Muted:           cat.Muted,
			MaxVoices:       cat.MaxVoices,
			AllowDuplicates: cat.AllowDuplicates,
		})
	}
	return p, nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
