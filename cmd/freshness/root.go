package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/franckalain/freshness/internal/config"
)

var (
	configPath string
	modelType  string
	modelPath  string
	catalogDB  string
)

var rootCmd = &cobra.Command{
	Use:          "freshness",
	Short:        "freshness estimates produce freshness from a photo",
	Long:         "freshness scores a photo of a fruit or vegetable and projects how its freshness decays under ideal, room and humid storage.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&modelType, "model-type", "", "Estimator backend: onnx, google or stub")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model-path", "", "Path to the ONNX model file")
	rootCmd.PersistentFlags().StringVar(&catalogDB, "catalog-db", "", "Path to a SQLite shelf-life catalog")
}

// loadConfig resolves configuration with command-line flags taking precedence
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if modelType != "" {
		cfg.ML.Type = modelType
	}
	if modelPath != "" {
		cfg.ML.ModelPath = modelPath
	}
	if catalogDB != "" {
		cfg.Catalog.Path = catalogDB
	}
	if err := cfg.SetupLogging(os.Stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}
