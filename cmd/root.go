// Package cmd holds the command-line entrypoints.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"realestate-market/config"
	"realestate-market/utils"
)

// Set by the linker at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// v collects defaults, the optional config file, APP_* env vars and flags.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "realestate-market",
	Short:         "Chișinău real-estate market data service.",
	Long:          `Aggregates apartment listings and price-per-m² samples from several sites, caches them and serves market analytics over HTTP.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, refreshCmd, versionCmd)
}

// loadConfig reads the config file when one is given, then resolves the
// final Config and a logger at the configured level.
func loadConfig() (*config.Config, *utils.Logger, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	if cfg.IsProduction() {
		return cfg, utils.NewLoggerWithOutput(cfg.LogLevel, os.Stdout), nil
	}
	return cfg, utils.NewLogger(cfg.LogLevel), nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
