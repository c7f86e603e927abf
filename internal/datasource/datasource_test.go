package datasource

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/rs/zerolog"

	"github.com/danimelchor/kalshi/internal/bus"
	"github.com/danimelchor/kalshi/internal/weather"
)

func noopLogger() zerolog.Logger { return zerolog.Nop() }

func TestStaticObservationSourcePublishesInOrder(t *testing.T) {
	c := qt.New(t)
	reg := bus.Registry{SocketDir: t.TempDir()}

	pub, err := bus.NewPublisher[DailyReport](bus.DailyWeatherReport, reg, noopLogger())
	c.Assert(err, qt.IsNil)
	defer pub.Close()

	records := []DailyReport{
		{Station: weather.KNYC, MaxTemperature: weather.NewFahrenheit(70)},
		{Station: weather.KNYC, MaxTemperature: weather.NewFahrenheit(72)},
	}
	src := NewStaticObservationSource(records)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Assert(src.Publish(ctx, pub), qt.IsNil)

	sub, err := bus.Connect[DailyReport](ctx, bus.DailyWeatherReport, reg, noopLogger())
	c.Assert(err, qt.IsNil)
	defer sub.Close()

	results := sub.Listen(ctx)
	for i, want := range records {
		select {
		case r := <-results:
			c.Assert(r.Err, qt.IsNil)
			c.Assert(r.Event.Message.MaxTemperature.Equal(want.MaxTemperature), qt.IsTrue)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for replayed record %d", i)
		}
	}
}
