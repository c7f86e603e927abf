package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbosity  int
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "kalshi",
	Short:         "kalshi runs the weather-driven trading bot's bus, forecast pipeline and supervisor",
	SilenceErrors: true, // main handles printing the final error
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbosity == 1 {
			level = zerolog.DebugLevel
		} else if verbosity >= 2 {
			level = zerolog.TraceLevel
		}
		log.Logger = log.Logger.Level(level)
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional TOML config file")
}
