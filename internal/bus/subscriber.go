package bus

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/danimelchor/kalshi/internal/wxerr"
)

// connectSteps are the fixed backoff delays between connection attempts:
// 200, 400, 800, 1600 ms. Four delays between five total attempts,
// matching the testable property in spec.md §8 exactly. (Doubling would
// continue to 3200ms for a sixth attempt, but no sixth attempt is made.)
var connectSteps = []time.Duration{
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
	1600 * time.Millisecond,
}

const maxConnectAttempts = 5

// fixedSteps is a backoff.BackOff that walks a fixed slice of delays and
// then stops, unlike backoff.ExponentialBackOff which randomizes. The
// deterministic sequence is required to satisfy the exact-timing boundary
// test in spec.md §8.
type fixedSteps struct {
	steps []time.Duration
	i     int
}

func (f *fixedSteps) NextBackOff() time.Duration {
	if f.i >= len(f.steps) {
		return backoff.Stop
	}
	d := f.steps[f.i]
	f.i++
	return d
}

func (f *fixedSteps) Reset() { f.i = 0 }

// Subscriber is the bus consumer side for one ServiceName and payload type
// T. It holds no buffer of its own; the sequence is consumed directly off
// the socket.
type Subscriber[T any] struct {
	service ServiceName
	conn    net.Conn
	log     zerolog.Logger
}

// Connect dials service, making one attempt plus one retry after each
// delay in connectSteps (maxConnectAttempts in all with the default
// delays). It fails with wxerr.BusUnreachable once attempts are exhausted.
func Connect[T any](ctx context.Context, service ServiceName, registry Registry, log zerolog.Logger) (*Subscriber[T], error) {
	path := registry.Endpoint(service)

	attempts := 0
	var conn net.Conn
	op := func() error {
		attempts++
		c, err := net.Dial("unix", path)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(&fixedSteps{steps: connectSteps}, uint64(len(connectSteps))), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return nil, wxerr.New(wxerr.BusUnreachable, "bus.subscriber.Connect", "exhausted connect attempts",
			map[string]any{"service": service.String(), "attempts": attempts})
	}

	return &Subscriber[T]{
		service: service,
		conn:    conn,
		log:     log.With().Str("service", service.String()).Logger(),
	}, nil
}

// Result carries either a decoded Event or a terminal error from Listen.
type Result[T any] struct {
	Event Event[T]
	Err   error
}

// Listen returns a channel fed by one read_one per element. A clean
// wxerr.TransportClosed ends the stream without an error; any other
// transport failure is forwarded as the stream's final Result before the
// channel closes. Listen stops early if ctx is done.
func (s *Subscriber[T]) Listen(ctx context.Context) <-chan Result[T] {
	out := make(chan Result[T])
	go func() {
		defer close(out)
		for {
			ev, err := ReadOne[T](s.conn)
			if err != nil {
				if !wxerr.Is(err, wxerr.TransportClosed) {
					select {
					case out <- Result[T]{Err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
			select {
			case out <- Result[T]{Event: ev}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close closes the underlying socket. The publisher observes this as a
// write failure on its next Publish and prunes the subscriber.
func (s *Subscriber[T]) Close() error {
	return s.conn.Close()
}
