package main

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danimelchor/kalshi/internal/bus"
	"github.com/danimelchor/kalshi/internal/config"
	"github.com/danimelchor/kalshi/internal/datasource"
	"github.com/danimelchor/kalshi/internal/forecast"
)

var dataSourceCmd = &cobra.Command{
	Use:   "data-source",
	Short: "run one data-source producer against the bus",
}

var weatherForecastCmd = &cobra.Command{
	Use:   "weather-forecast",
	Short: "run the rolling forecast fetcher and publish snapshots on the WeatherForecast topic",
	RunE:  runWeatherForecastDataSource,
}

// nwsDailyObservationsCmd and nwsHourlyObservationsCmd stand in for the
// HTML-scraping data sources: the scraped record shapes are this
// module's concern (datasource.DailyReport / HourlyTimeseriesRecord /
// HourlyTableRecord), but the scraper and the headless-browser driver
// behind it are an external collaborator, not implemented here.
var nwsDailyObservationsCmd = &cobra.Command{
	Use:   "nws-daily-observations",
	Short: "open the DailyWeatherReport topic and publish a static (empty) record set; no scraping is performed",
	RunE:  runStaticDailyObservations,
}

var nwsHourlyObservationsCmd = &cobra.Command{
	Use:   "nws-hourly-observations",
	Short: "open the hourly timeseries/table topics and publish static (empty) record sets; no scraping is performed",
	RunE:  runStaticHourlyObservations,
}

func init() {
	dataSourceCmd.AddCommand(weatherForecastCmd, nwsDailyObservationsCmd, nwsHourlyObservationsCmd)
	rootCmd.AddCommand(dataSourceCmd)
}

func runWeatherForecastDataSource(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	station, err := cfg.StationValue()
	if err != nil {
		return err
	}
	model, err := cfg.ModelValue()
	if err != nil {
		return err
	}

	registry := bus.Registry{SocketDir: cfg.SocketDir}
	pub, err := bus.NewPublisher[forecast.WeatherForecast](bus.WeatherForecast, registry, log.Logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	fetcher := forecast.NewFetcher(station, model, model.MaxLeadHours(), cfg.Historical, forecast.Precomputed, http.DefaultClient).WithLogger(log.Logger)

	ctx := cmd.Context()
	for evt := range fetcher.Run(ctx) {
		if evt.Err != nil {
			log.Error().Err(evt.Err).Msg("forecast cycle error")
			continue
		}
		pub.Publish(evt.Snapshot)
	}
	return nil
}

func runStaticDailyObservations(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	registry := bus.Registry{SocketDir: cfg.SocketDir}
	pub, err := bus.NewPublisher[datasource.DailyReport](bus.DailyWeatherReport, registry, log.Logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	source := datasource.NewStaticObservationSource([]datasource.DailyReport(nil))
	return source.Publish(cmd.Context(), pub)
}

func runStaticHourlyObservations(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	registry := bus.Registry{SocketDir: cfg.SocketDir}

	timeseriesPub, err := bus.NewPublisher[datasource.HourlyTimeseriesRecord](bus.HourlyWeatherTimeseries, registry, log.Logger)
	if err != nil {
		return err
	}
	defer timeseriesPub.Close()

	tablePub, err := bus.NewPublisher[datasource.HourlyTableRecord](bus.HourlyWeatherTable, registry, log.Logger)
	if err != nil {
		return err
	}
	defer tablePub.Close()

	timeseriesSource := datasource.NewStaticObservationSource([]datasource.HourlyTimeseriesRecord(nil))
	tableSource := datasource.NewStaticObservationSource([]datasource.HourlyTableRecord(nil))

	errCh := make(chan error, 2)
	go func() { errCh <- timeseriesSource.Publish(cmd.Context(), timeseriesPub) }()
	go func() { errCh <- tableSource.Publish(cmd.Context(), tablePub) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
