package forecast

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/danimelchor/kalshi/internal/weather"
	"github.com/danimelchor/kalshi/internal/wxerr"
)

const (
	livePermits       = 12
	historicalPermits = 1
)

// CycleResult is one lead time's outcome from a Cycle run.
type CycleResult struct {
	LeadHours int
	Forecast  SingleWeatherForecast
	Err       error
}

// Cycle fetches and decodes every lead time of one model run, under a
// bounded concurrency budget: 12 permits live (networking-heavy), 1
// historical (archive-friendly, avoid hammering the archive host).
type Cycle struct {
	station    weather.Station
	model      weather.Model
	runTime    time.Time
	maxLead    int
	historical bool
	mode       ComputeMode
	client     *http.Client
	sem        *semaphore.Weighted
	urlFunc    func(leadHours int) string
	log        zerolog.Logger
}

// WithLogger attaches log to c, used to tag each Run with a correlation
// id and to record per-lead-hour failures. Callers that don't need
// observability can skip this; a Cycle built via NewCycle logs nothing.
func (c *Cycle) WithLogger(log zerolog.Logger) *Cycle {
	c.log = log
	return c
}

// NewCycle constructs a Cycle for one run. client may be nil, in which
// case http.DefaultClient is used.
func NewCycle(station weather.Station, model weather.Model, runTime time.Time, maxLead int, historical bool, mode ComputeMode, client *http.Client) *Cycle {
	return NewCycleWithURLFunc(station, model, runTime, maxLead, historical, mode, client, func(lead int) string {
		return ReportURL(model.Kind(), runTime, lead, historical)
	})
}

// NewCycleWithURLFunc is NewCycle with the report URL construction
// injected, so tests and alternate deployments can target a mirror or
// fixture server instead of the hardcoded NOAA/Utah hosts.
func NewCycleWithURLFunc(station weather.Station, model weather.Model, runTime time.Time, maxLead int, historical bool, mode ComputeMode, client *http.Client, urlFunc func(leadHours int) string) *Cycle {
	if client == nil {
		client = http.DefaultClient
	}
	permits := int64(livePermits)
	if historical {
		permits = historicalPermits
	}
	return &Cycle{
		station:    station,
		model:      model,
		runTime:    runTime,
		maxLead:    maxLead,
		historical: historical,
		mode:       mode,
		client:     client,
		sem:        semaphore.NewWeighted(permits),
		urlFunc:    urlFunc,
		log:        zerolog.Nop(),
	}
}

// Run fans out one task per lead hour in [0, maxLead] and returns an
// unordered stream of their results. A failure on one lead time does not
// cancel its siblings. The returned channel closes once every lead hour
// has reported.
func (c *Cycle) Run(ctx context.Context) <-chan CycleResult {
	runID, err := uuid.NewV4()
	if err != nil {
		runID = uuid.UUID{}
	}
	runLog := c.log.With().Str("cycle_id", runID.String()).Time("run_time", c.runTime).Logger()
	runLog.Info().Int("max_lead", c.maxLead).Bool("historical", c.historical).Msg("starting forecast cycle")

	out := make(chan CycleResult)

	go func() {
		defer close(out)
		var wg sync.WaitGroup
		for lead := 0; lead <= c.maxLead; lead++ {
			lead := lead
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.runLead(ctx, runLog, lead, out)
			}()
		}
		wg.Wait()
		runLog.Info().Msg("forecast cycle complete")
	}()

	return out
}

func (c *Cycle) runLead(ctx context.Context, log zerolog.Logger, lead int, out chan<- CycleResult) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		send(ctx, out, CycleResult{LeadHours: lead, Err: err})
		return
	}

	url := c.urlFunc(lead)

	if !c.historical {
		if err := WaitForReport(ctx, c.client, url, nil); err != nil {
			c.sem.Release(1)
			wxerr.LogWithMeta(log.Error(), err).Int("lead", lead).Msg("wait for report failed")
			send(ctx, out, CycleResult{LeadHours: lead, Err: err})
			return
		}
	}

	raw, err := GetReport(ctx, c.client, url)
	c.sem.Release(1) // free the download slot before CPU-bound decode
	if err != nil {
		wxerr.LogWithMeta(log.Error(), err).Int("lead", lead).Msg("get report failed")
		send(ctx, out, CycleResult{LeadHours: lead, Err: err})
		return
	}

	fc, err := Decode(raw, c.station, c.model, c.runTime, lead, c.mode)
	if err != nil {
		wxerr.LogWithMeta(log.Error(), err).Int("lead", lead).Msg("decode failed")
	}
	send(ctx, out, CycleResult{LeadHours: lead, Forecast: fc, Err: err})
}

func send(ctx context.Context, out chan<- CycleResult, r CycleResult) {
	select {
	case out <- r:
	case <-ctx.Done():
	}
}
