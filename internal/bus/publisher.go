package bus

import (
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/danimelchor/kalshi/internal/wxerr"
)

// publisherState is the Created -> Bound -> Serving -> Closed state
// machine from the component design.
type publisherState int32

const (
	stateCreated publisherState = iota
	stateBound
	stateServing
	stateClosed
)

// Publisher is the bus producer side for one ServiceName and payload type
// T. It owns an append-only buffer of every event it has ever published
// and the list of currently-connected subscriber sockets.
type Publisher[T any] struct {
	service  ServiceName
	registry Registry
	log      zerolog.Logger

	listener *net.UnixListener
	state    atomic.Int32

	bufMu  sync.RWMutex
	buffer []Event[T]

	subsMu sync.Mutex
	subs   []net.Conn

	idSeq atomic.Uint32

	closed    chan struct{}
	closeOnce sync.Once
}

// NewPublisher unlinks any stale rendezvous path, binds the listener, and
// spawns the accept loop. A bind failure is fatal to the component, as
// spec.md's failure semantics require.
func NewPublisher[T any](service ServiceName, registry Registry, log zerolog.Logger) (*Publisher[T], error) {
	path := registry.Endpoint(service)

	if fi, err := os.Stat(path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, wxerr.New(wxerr.TransportIo, "bus.publisher.New",
				"rendezvous path exists and is not a socket", map[string]any{"path": path})
		}
		if err := os.Remove(path); err != nil {
			return nil, wxerr.Wrap(err, wxerr.TransportIo, "bus.publisher.New", "unlink stale socket", map[string]any{"path": path})
		}
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, wxerr.Wrap(err, wxerr.TransportIo, "bus.publisher.New", "resolve unix addr", map[string]any{"path": path})
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, wxerr.Wrap(err, wxerr.TransportIo, "bus.publisher.New", "bind listener", map[string]any{"path": path})
	}

	p := &Publisher[T]{
		service:  service,
		registry: registry,
		log:      log.With().Str("service", service.String()).Logger(),
		listener: listener,
		closed:   make(chan struct{}),
	}
	p.state.Store(int32(stateBound))

	go p.acceptLoop()
	p.state.Store(int32(stateServing))

	return p, nil
}

// acceptLoop is the single, long-running accept goroutine. For each
// inbound connection it takes a consistent snapshot of the buffer under
// the read lock, catches the peer up, and only then appends it to the
// subscriber list. The snapshot and the append are separate steps: an
// event published after the snapshot is taken but before the peer is
// appended is not sent to that peer. Live delivery to the peer starts
// with the first Publish after it has been appended.
func (p *Publisher[T]) acceptLoop() {
	for {
		conn, err := p.listener.AcceptUnix()
		if err != nil {
			select {
			case <-p.closed:
				return
			default:
			}
			p.log.Error().Err(err).Msg("accept failed, continuing")
			continue
		}
		p.handleAccept(conn)
	}
}

func (p *Publisher[T]) handleAccept(conn net.Conn) {
	p.bufMu.RLock()
	snapshot := make([]Event[T], len(p.buffer))
	copy(snapshot, p.buffer)
	p.bufMu.RUnlock()

	for _, ev := range snapshot {
		if err := WriteOne(conn, ev); err != nil {
			p.log.Warn().Err(err).Uint32("event_id", ev.ID).Msg("dropping subscriber: catch-up write failed")
			_ = conn.Close()
			return
		}
	}

	p.subsMu.Lock()
	p.subs = append(p.subs, conn)
	p.subsMu.Unlock()
}

// Publish appends message to the buffer and fans it out to every
// currently-connected subscriber. Subscribers whose write fails are
// pruned; publishing never blocks on a slow subscriber beyond its write
// syscall since each subscriber's write runs concurrently via errgroup.
func (p *Publisher[T]) Publish(message T) Event[T] {
	id := p.idSeq.Add(1) - 1
	ev := NewEvent(id, message, time.Now())

	p.bufMu.Lock()
	p.buffer = append(p.buffer, ev)
	p.bufMu.Unlock()

	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	failed := make([]bool, len(p.subs))
	var g errgroup.Group
	for i, c := range p.subs {
		i, c := i, c
		g.Go(func() error {
			if err := WriteOne(c, ev); err != nil {
				failed[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := len(p.subs) - 1; i >= 0; i-- {
		if failed[i] {
			_ = p.subs[i].Close()
			p.log.Info().Int("subscriber_index", i).Msg("pruned dead subscriber")
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
		}
	}

	return ev
}

// SubscriberCount returns the number of currently-connected subscribers.
// Intended for tests and diagnostics.
func (p *Publisher[T]) SubscriberCount() int {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	return len(p.subs)
}

// Close stops accepting new connections and closes the listener. It does
// not close existing subscriber sockets; subscribers learn of shutdown the
// normal way, via a failed read.
func (p *Publisher[T]) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.state.Store(int32(stateClosed))
		close(p.closed)
		err = p.listener.Close()
	})
	return err
}
