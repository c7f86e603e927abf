package forecast

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/danimelchor/kalshi/internal/weather"
	"github.com/danimelchor/kalshi/internal/wxerr"
)

// FetcherEvent is one emission from a Fetcher's run: either a growing
// snapshot for the current run, or an error for one lead time (the run
// continues regardless).
type FetcherEvent struct {
	Snapshot WeatherForecast
	Err      error
}

// Fetcher drives Cycles over wall-clock time, one run per hour, starting
// from the hour before now in the station's own timezone.
type Fetcher struct {
	station    weather.Station
	model      weather.Model
	maxLead    int
	historical bool
	mode       ComputeMode
	client     *http.Client
	now        func() time.Time
	log        zerolog.Logger
}

// NewFetcher constructs a Fetcher. client may be nil (http.DefaultClient
// is used).
func NewFetcher(station weather.Station, model weather.Model, maxLead int, historical bool, mode ComputeMode, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		station:    station,
		model:      model,
		maxLead:    maxLead,
		historical: historical,
		mode:       mode,
		client:     client,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
}

// WithLogger attaches log to f, propagated into every Cycle f constructs
// so each hourly run's correlation id and per-lead failures land in the
// same logger. Callers that don't need observability can skip this.
func (f *Fetcher) WithLogger(log zerolog.Logger) *Fetcher {
	f.log = log
	return f
}

// Run emits a growing snapshot as each lead time of the current run
// arrives, clears it at run rollover, and advances the run timestamp by
// one hour. It stops when ctx is done.
func (f *Fetcher) Run(ctx context.Context) <-chan FetcherEvent {
	out := make(chan FetcherEvent)

	go func() {
		defer close(out)

		loc, err := time.LoadLocation(f.station.Zone())
		if err != nil {
			sendFetcherEvent(ctx, out, FetcherEvent{Err: wxerr.Wrap(err, wxerr.ZoneUnknown, "forecast.Fetcher.Run", "load station zone", nil)})
			return
		}

		ts := truncHour(f.now().UTC().Add(-time.Hour)).In(loc)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			cycle := NewCycle(f.station, f.model, ts, f.maxLead, f.historical, f.mode, f.client).WithLogger(f.log)
			snap := newSnapshot(f.maxLead)

			for r := range cycle.Run(ctx) {
				if r.Err != nil {
					if !sendFetcherEvent(ctx, out, FetcherEvent{Err: r.Err}) {
						return
					}
					continue
				}
				snap = snap.withInserted(r.Forecast)
				if !sendFetcherEvent(ctx, out, FetcherEvent{Snapshot: snap}) {
					return
				}
			}

			ts = ts.Add(time.Hour)
		}
	}()

	return out
}

func sendFetcherEvent(ctx context.Context, out chan<- FetcherEvent, e FetcherEvent) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}
