package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scoreview/internal/config"
	"scoreview/internal/logging"
	"scoreview/internal/storage"
	"scoreview/internal/view"
)

var rootCmd = &cobra.Command{
	Use:           "scoreview",
	Short:         "Scoreboard and result viewer for an attack-defense gameserver",
	Long:          `Serves the scoreboard, service status, service history and missing checks views of a gameserver, live over websockets, and renders them on the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to configuration file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format override (console, json)")
}

// loadEnv reads the configuration and builds the process logger. Flags override the
// log settings of the file.
func loadEnv(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	logger.Debug().Str("config", configPath).Int("services", len(cfg.Services)).Msg("configuration loaded")
	return cfg, logger, nil
}

func openStore(cfg config.Config) (storage.Store, error) {
	store, err := storage.Open(cfg.Storage.Driver, cfg.StoragePath(), cfg.Storage.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("initialise storage: %w", err)
	}
	return store, nil
}

// endpointViews maps every configured endpoint path to its view kind.
func endpointViews(cfg config.Config) map[string]string {
	views := make(map[string]string, len(view.Kinds))
	for _, kind := range view.Kinds {
		if path, ok := cfg.Endpoint(kind); ok {
			views[path] = kind
		}
	}
	return views
}

func viewOptions(cfg config.Config) view.Options {
	return view.Options{Density: cfg.Density, StatusPath: "/" + view.KindStatus}
}
