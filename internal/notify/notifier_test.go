package notify

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLineNotifierWritesTitleAndItems(t *testing.T) {
	c := qt.New(t)
	var buf bytes.Buffer

	n := NewLineNotifier(&buf)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c.Assert(n.Send(ctx, "HIGHNY above 72F", []string{"buy YES @ 55c", "size 10"}), qt.IsNil)
	n.Close()

	out := buf.String()
	c.Assert(strings.Contains(out, "HIGHNY above 72F"), qt.IsTrue)
	c.Assert(strings.Contains(out, "buy YES @ 55c"), qt.IsTrue)
	c.Assert(strings.Contains(out, "size 10"), qt.IsTrue)
}

func TestLineNotifierSendBlocksUntilContextDone(t *testing.T) {
	c := qt.New(t)

	bw := newBlockingWriter()
	n := NewLineNotifier(bw)
	defer func() {
		bw.unblock()
		n.Close()
	}()

	// The writer goroutine is stuck on its first write, so the queue
	// fills up and never drains.
	c.Assert(n.Send(context.Background(), "t", []string{"x"}), qt.IsNil)
	for i := 0; i < 64; i++ {
		_ = n.Send(context.Background(), "t", []string{"x"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := n.Send(ctx, "t", []string{"x"})
	c.Assert(err, qt.IsNotNil)
}

// blockingWriter blocks its first Write until unblock is called, so tests
// can deterministically fill the notifier's queue.
type blockingWriter struct {
	bytes.Buffer
	release chan struct{}
	once    sync.Once
}

func newBlockingWriter() *blockingWriter {
	return &blockingWriter{release: make(chan struct{})}
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	<-b.release
	return b.Buffer.Write(p)
}

func (b *blockingWriter) unblock() {
	b.once.Do(func() { close(b.release) })
}
