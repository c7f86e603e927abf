// Package datasource defines the wire shapes published onto the bus by
// the three observation sources named in the component design — hourly
// timeseries, hourly table, and daily report — plus a static stand-in
// source used to drive the bus end to end without a scraper.
package datasource

import (
	"context"

	"github.com/danimelchor/kalshi/internal/bus"
	"github.com/danimelchor/kalshi/internal/weather"
)

// HourlyTimeseriesRecord is one reading from the NWS hourly timeseries
// page for a station: a point-in-time temperature plus an optional
// rolling six-hour max.
type HourlyTimeseriesRecord struct {
	At                    bus.ZonedInstant
	Station               weather.Station
	Temperature           weather.Temperature
	SixHourMaxPresent     bool
	SixHourMaxTemperature weather.Temperature
}

// HourlyTableRecord is one row from the NWS hourly observation table,
// carrying the same fields as HourlyTimeseriesRecord under a distinct
// wire type since the two sources are scraped differently and may drift
// out of sync with each other.
type HourlyTableRecord struct {
	At                    bus.ZonedInstant
	Station               weather.Station
	Temperature           weather.Temperature
	SixHourMaxPresent     bool
	SixHourMaxTemperature weather.Temperature
}

// DailyReport is the parsed NWS daily climate report's maximum
// temperature line for one station and day.
type DailyReport struct {
	At             bus.ZonedInstant
	Station        weather.Station
	MaxTemperature weather.Temperature
}

// StaticObservationSource replays a fixed, caller-supplied slice of
// records instead of scraping a live NWS page. It exists for tests and
// for driving the bus end to end without a browser driver, matching this
// module's explicit non-goal of not implementing the scrapers themselves.
type StaticObservationSource[T any] struct {
	records []T
}

// NewStaticObservationSource wraps records for later replay.
func NewStaticObservationSource[T any](records []T) *StaticObservationSource[T] {
	return &StaticObservationSource[T]{records: records}
}

// Publish publishes every record in order onto pub, returning early if
// ctx is cancelled between records.
func (s *StaticObservationSource[T]) Publish(ctx context.Context, pub *bus.Publisher[T]) error {
	for _, r := range s.records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		pub.Publish(r)
	}
	return nil
}
