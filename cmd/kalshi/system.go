package main

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/logrusorgru/aurora/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danimelchor/kalshi/internal/config"
	"github.com/danimelchor/kalshi/internal/supervisor"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "start the full system: data sources and strategies as child processes (no external driver process is started)",
	RunE:  runSystem,
}

func init() {
	rootCmd.AddCommand(systemCmd)
}

func runSystem(cmd *cobra.Command, args []string) error {
	_, err := config.Load(configPath)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}

	specs := []supervisor.Spec{
		{Name: "nws-daily-observations", Color: aurora.Cyan, Executable: exe, Args: []string{"data-source", "nws-daily-observations", "--config", configPath}},
		{Name: "nws-hourly-observations", Color: aurora.Yellow, Executable: exe, Args: []string{"data-source", "nws-hourly-observations", "--config", configPath}, StartDelay: 2 * time.Second},
		{Name: "weather-forecast", Color: aurora.Blue, Executable: exe, Args: []string{"data-source", "weather-forecast", "--config", configPath}},
		{Name: "dump-if-temp-higher", Color: aurora.Green, Executable: exe, Args: []string{"strategy", "dump-if-temp-higher", "--config", configPath}, StartDelay: 4 * time.Second},
		{Name: "forecast-notifier", Color: aurora.Magenta, Executable: exe, Args: []string{"strategy", "forecast-notifier", "--config", configPath}, StartDelay: 4 * time.Second},
	}

	sup := supervisor.New(specs, os.Stdout, os.Stderr, log.Logger)
	results := sup.Run(cmd.Context())

	var failed bool
	for _, r := range results {
		if r.Err != nil {
			failed = true
			log.Error().Str("name", r.Name).Err(r.Err).Msg("child process failed")
		}
	}
	if failed {
		return errors.New("one or more child processes failed")
	}
	return nil
}
