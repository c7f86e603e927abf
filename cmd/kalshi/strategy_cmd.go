package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/danimelchor/kalshi/internal/bus"
	"github.com/danimelchor/kalshi/internal/config"
	"github.com/danimelchor/kalshi/internal/datasource"
	"github.com/danimelchor/kalshi/internal/forecast"
	"github.com/danimelchor/kalshi/internal/market"
	"github.com/danimelchor/kalshi/internal/notify"
	"github.com/danimelchor/kalshi/internal/weather"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "run one strategy consumer against the bus",
}

var forecastNotifierCmd = &cobra.Command{
	Use:   "forecast-notifier",
	Short: "notify whenever a forecast lead time's temperature exceeds the highest forecast temperature seen so far",
	RunE:  runForecastNotifier,
}

var dumpIfTempHigherCmd = &cobra.Command{
	Use:   "dump-if-temp-higher",
	Short: "notify whenever an observed temperature exceeds the running max for the station's current day",
	RunE:  runDumpIfTempHigher,
}

var (
	watchedTicker string
	strikeCents   int64
)

func init() {
	dumpIfTempHigherCmd.Flags().StringVar(&watchedTicker, "ticker", "", "Kalshi market ticker this strategy is watching (informational; no trading is performed)")
	dumpIfTempHigherCmd.Flags().Int64Var(&strikeCents, "strike-cents", 0, "strike price, in cents, annotated on notifications once the ticker is set")

	strategyCmd.AddCommand(forecastNotifierCmd, dumpIfTempHigherCmd)
	rootCmd.AddCommand(strategyCmd)
}

// weatherEvent is the tagged union forecastNotifierCmd merges its single
// subscription through; kept even for one variant so a second
// subscription (e.g. a rate-limit signal) can be added without changing
// the handler's shape.
type weatherEvent struct {
	forecast forecast.WeatherForecast
}

func runForecastNotifier(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := bus.Registry{SocketDir: cfg.SocketDir}
	notifier := notify.NewLineNotifier(nil)
	defer notifier.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	multi, ctx := bus.NewMultiSubscriber[weatherEvent](ctx)
	defer multi.Close()

	err = bus.AddSubscription[forecast.WeatherForecast, weatherEvent](ctx, multi, bus.WeatherForecast, registry, log.Logger,
		func(e bus.Event[forecast.WeatherForecast]) weatherEvent { return weatherEvent{forecast: e.Message} })
	if err != nil {
		return err
	}

	var best *forecast.SingleWeatherForecast
	return multi.ListenAll(ctx, func(e weatherEvent) error {
		for _, fc := range e.forecast.ByTime {
			if best == nil || fc.Temperature.Compare(best.Temperature) > 0 {
				best = &fc
				title := "Forecast update"
				items := []string{
					fmt.Sprintf("Max temp: %.2fF", fc.Temperature.AsFahrenheit()),
					fmt.Sprintf("Lead time: %dh", fc.LeadHours),
					fmt.Sprintf("At: %s", fc.At.Format(time.RFC3339)),
				}
				if sendErr := notifier.Send(ctx, title, items); sendErr != nil {
					log.Error().Err(sendErr).Msg("failed to send forecast notification")
				}
			}
		}
		return nil
	})
}

// observationEvent is the tagged union dumpIfTempHigherCmd merges its
// three observation subscriptions through.
type observationEvent struct {
	timeseries *datasource.HourlyTimeseriesRecord
	table      *datasource.HourlyTableRecord
	daily      *datasource.DailyReport
}

func runDumpIfTempHigher(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	station, err := cfg.StationValue()
	if err != nil {
		return err
	}

	loc, err := time.LoadLocation(station.Zone())
	if err != nil {
		return err
	}
	today := time.Now().In(loc)

	registry := bus.Registry{SocketDir: cfg.SocketDir}
	notifier := notify.NewLineNotifier(nil)
	defer notifier.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	multi, ctx := bus.NewMultiSubscriber[observationEvent](ctx)
	defer multi.Close()

	if err := bus.AddSubscription[datasource.HourlyTimeseriesRecord, observationEvent](ctx, multi, bus.HourlyWeatherTimeseries, registry, log.Logger,
		func(e bus.Event[datasource.HourlyTimeseriesRecord]) observationEvent {
			rec := e.Message
			return observationEvent{timeseries: &rec}
		}); err != nil {
		return err
	}
	if err := bus.AddSubscription[datasource.HourlyTableRecord, observationEvent](ctx, multi, bus.HourlyWeatherTable, registry, log.Logger,
		func(e bus.Event[datasource.HourlyTableRecord]) observationEvent {
			rec := e.Message
			return observationEvent{table: &rec}
		}); err != nil {
		return err
	}
	if err := bus.AddSubscription[datasource.DailyReport, observationEvent](ctx, multi, bus.DailyWeatherReport, registry, log.Logger,
		func(e bus.Event[datasource.DailyReport]) observationEvent {
			rec := e.Message
			return observationEvent{daily: &rec}
		}); err != nil {
		return err
	}

	ticker := market.Ticker(watchedTicker)
	strike := market.Price(strikeCents)

	var observedMax *weather.Temperature
	maybeUpdate := func(seen weather.Temperature) {
		if observedMax != nil && seen.Compare(*observedMax) <= 0 {
			return
		}
		observedMax = &seen
		items := []string{fmt.Sprintf("%.2fF", seen.AsFahrenheit())}
		if ticker != "" {
			items = append(items, fmt.Sprintf("Market: %s (strike %s)", ticker, strike.Dollars()))
		}
		if sendErr := notifier.Send(ctx, "New observed max", items); sendErr != nil {
			log.Error().Err(sendErr).Msg("failed to send observation notification")
		}
	}

	sameDay := func(at time.Time) bool {
		y1, m1, d1 := at.In(loc).Date()
		y2, m2, d2 := today.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}

	return multi.ListenAll(ctx, func(e observationEvent) error {
		switch {
		case e.timeseries != nil:
			r := e.timeseries
			at, tErr := r.At.Time()
			if tErr == nil && sameDay(at) {
				maybeUpdate(r.Temperature)
				if r.SixHourMaxPresent {
					maybeUpdate(r.SixHourMaxTemperature)
				}
			}
		case e.table != nil:
			r := e.table
			at, tErr := r.At.Time()
			if tErr == nil && sameDay(at) {
				maybeUpdate(r.Temperature)
				if r.SixHourMaxPresent {
					maybeUpdate(r.SixHourMaxTemperature)
				}
			}
		case e.daily != nil:
			r := e.daily
			at, tErr := r.At.Time()
			if tErr == nil && sameDay(at) {
				maybeUpdate(r.MaxTemperature)
			}
		}
		return nil
	})
}
