package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// MultiSubscriber merges N typed subscriber streams into a single stream
// of a tagged-variant event type E. Rather than dynamic dispatch across
// payload types, each subscription is paired with an injection function
// Event[T] -> E at AddSubscription time — the abstract equivalent of a
// typed bus with compile-time membership proof (see spec.md §9).
type MultiSubscriber[E any] struct {
	out    chan E
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewMultiSubscriber creates an empty merger. Subscriptions are added with
// the package-level AddSubscription function (Go methods cannot carry
// their own type parameters beyond the receiver's).
func NewMultiSubscriber[E any](ctx context.Context) (*MultiSubscriber[E], context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &MultiSubscriber[E]{
		out:    make(chan E),
		cancel: cancel,
	}, ctx
}

// AddSubscription connects a Subscriber[T] for service and feeds every
// event it yields, mapped through inject, into m's merged stream. Read
// errors on the underlying subscriber are logged and end that source's
// goroutine without affecting the others — no single source can starve
// the merge, since each source goroutine blocks only on its own read and
// its own (unbuffered) send.
func AddSubscription[T any, E any](
	ctx context.Context,
	m *MultiSubscriber[E],
	service ServiceName,
	registry Registry,
	log zerolog.Logger,
	inject func(Event[T]) E,
) error {
	sub, err := Connect[T](ctx, service, registry, log)
	if err != nil {
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer sub.Close()
		for res := range sub.Listen(ctx) {
			if res.Err != nil {
				log.Error().Err(res.Err).Str("service", service.String()).Msg("subscription stream ended with error")
				return
			}
			select {
			case m.out <- inject(res.Event):
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// ListenAll drives the merged stream, invoking handler for each event in
// arrival order across sources (no ordering guarantee is made between
// sources). A handler error stops the loop and is returned.
func (m *MultiSubscriber[E]) ListenAll(ctx context.Context, handler func(E) error) error {
	for {
		select {
		case e, ok := <-m.out:
			if !ok {
				return nil
			}
			if err := handler(e); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the merge, cancelling every subscription's context and
// waiting for their goroutines to exit.
func (m *MultiSubscriber[E]) Close() {
	m.cancel()
	m.wg.Wait()
	close(m.out)
}
