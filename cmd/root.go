package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chime/assets"
	"chime/catalog"
	"chime/config"
	"chime/device"
	"chime/engine"
	"chime/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chime [clip id...]",
	Short: "A policy-driven audio playback engine",
	Long: `Chime plays catalog clips through a pooled, policy-driven playback engine:
per-category volume, mute, concurrency limits and duplicate suppression,
with fade envelopes and music crossfading.

Pass one or more clip ids from the catalog; music clips replace the current
track (crossfaded by default), everything else plays as one-shots. Looping
clips run until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Local flags for the play command
	rootCmd.Flags().String("catalog", "catalog.yaml", "clip catalog file")
	rootCmd.Flags().Bool("silent", false, "run without an audio device")
	rootCmd.Flags().Bool("no-crossfade", false, "cut the current music track instead of crossfading")
	rootCmd.Flags().Float64("master-volume", 1.0, "master volume (0..1)")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	viper.BindPFlag("catalog.path", rootCmd.Flags().Lookup("catalog"))
	viper.BindPFlag("audio.silent", rootCmd.Flags().Lookup("silent"))
	viper.BindPFlag("audio.master_volume", rootCmd.Flags().Lookup("master-volume"))
	viper.BindPFlag("logging.level", rootCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.Flags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if verbose {
		viper.Set("logging.level", "debug")
	}
}

// runPlay builds the engine and plays the requested clips
func runPlay(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Setup logging
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	// Load the clip catalog
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// Open the output device
	var factory engine.OutputFactory
	var spk *device.Speaker
	if cfg.Audio.Silent {
		factory = device.NewNullFactory()
	} else {
		cache := assets.NewCache()
		spk, err = device.Open(cfg.Audio.SampleRate, cfg.Audio.BufferMs, cache)
		if err != nil {
			return fmt.Errorf("failed to open audio device: %w", err)
		}
		defer spk.Close()
		preloadCatalog(cache, cat)
	}

	// Build the engine
	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("failed to build category policy: %w", err)
	}
	pool := engine.NewVoicePool(factory, cfg.Pool.MaxBufferVoices, cfg.Pool.MaxStreamVoices)
	pool.Prewarm(engine.KindBuffer, cfg.Pool.Prewarm)

	log := logger.WithComponent("player")
	eng := engine.New(cat, pool, policy, engine.Events{
		Started: func(clipID string, c engine.Category) {
			log.Info("started", "clip", clipID, "category", c.String())
		},
		Stopped: func(clipID string, c engine.Category) {
			log.Info("stopped", "clip", clipID, "category", c.String())
		},
	})
	defer eng.Close()

	crossfade := !mustBool(cmd, "no-crossfade")
	for _, id := range args {
		clip := cat.Resolve(id)
		if clip == nil {
			log.Error("unknown clip id", "clip", id)
			continue
		}
		if clip.Category == engine.Music {
			eng.PlayMusic(id, engine.MusicOptions{CrossFade: crossfade})
		} else {
			eng.Play(id, engine.PlayOptions{})
		}
	}

	// Setup graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// Run until every requested clip has finished or a signal arrives
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case sig := <-signalChan:
			fmt.Printf("\nReceived %s, shutting down gracefully...\n", sig)
			eng.StopAll(false)
			return nil
		case <-ticker.C:
			if eng.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// preloadCatalog decodes every file-backed clip ahead of playback.
func preloadCatalog(cache *assets.Cache, cat *catalog.Catalog) {
	var files []string
	for _, id := range cat.IDs() {
		if clip := cat.Resolve(id); clip != nil && clip.File != "" {
			files = append(files, clip.File)
		}
	}
	cache.Preload(files...)
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
