package cmd

import (
	"fmt"
	"log/slog"
	"sort"

	"chime/catalog"
	"chime/config"
	"chime/logger"

	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for managing and validating chime configuration.",
}

// configValidateCmd validates the current configuration and catalog
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the current configuration file, environment variables and the clip catalog.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup basic logging for validation
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		// Load configuration
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Validate configuration
		if err := cfg.Validate(); err != nil {
			slog.Error("Configuration validation failed", slog.Any("error", err))
			return err
		}

		// Validate the catalog as well; a config pointing at a broken
		// catalog is not usable.
		if _, err := catalog.Load(cfg.Catalog.Path); err != nil {
			slog.Error("Catalog validation failed", slog.Any("error", err))
			return err
		}

		slog.Info("Configuration is valid")
		fmt.Println("✅ Configuration is valid")
		return nil
	},
}

// configShowCmd shows the current configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration values from file and environment variables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Setup basic logging
		if err := logger.Setup("info", "text"); err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}

		// Load configuration
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Current Configuration:")
		fmt.Printf("  Audio:\n")
		fmt.Printf("    Sample rate: %d\n", cfg.Audio.SampleRate)
		fmt.Printf("    Buffer: %dms\n", cfg.Audio.BufferMs)
		fmt.Printf("    Master volume: %.2f (muted: %v)\n", cfg.Audio.MasterVolume, cfg.Audio.MasterMuted)
		fmt.Printf("    Silent: %v\n", cfg.Audio.Silent)
		fmt.Printf("  Pool:\n")
		fmt.Printf("    Buffer voices: %d\n", cfg.Pool.MaxBufferVoices)
		fmt.Printf("    Stream voices: %d\n", cfg.Pool.MaxStreamVoices)
		fmt.Printf("    Prewarm: %d\n", cfg.Pool.Prewarm)
		fmt.Printf("  Categories:\n")
		names := make([]string, 0, len(cfg.Categories))
		for name := range cfg.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cat := cfg.Categories[name]
			fmt.Printf("    %s: volume=%.2f muted=%v max_voices=%d allow_duplicates=%v\n",
				name, cat.Volume, cat.Muted, cat.MaxVoices, cat.AllowDuplicates)
		}
		fmt.Printf("  Catalog:\n")
		fmt.Printf("    Path: %s\n", cfg.Catalog.Path)
		fmt.Printf("  Logging:\n")
		fmt.Printf("    Level: %s\n", cfg.Logging.Level)
		fmt.Printf("    Format: %s\n", cfg.Logging.Format)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
