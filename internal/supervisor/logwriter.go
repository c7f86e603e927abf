package supervisor

import (
	"bytes"

	"github.com/rs/zerolog"
)

// logWriter is an io.Writer that buffers a child process's raw output
// until a full line is available, then hands the line to fn (the
// supervisor uses this to multiplex it onto its own stdout/stderr,
// prefixed and colored by child name). Unlike a bufio.Scanner, it
// tolerates partial writes: a child that writes half a line, blocks,
// then writes the rest still produces exactly one call to fn per
// newline.
//
// A line that would overrun maxLine is never assembled: rather than
// forward it piecemeal, which would interleave badly with other
// children sharing the same output stream, or silently vanish, it is
// dropped and counted. The count surfaces as a structured warning the
// next time Flush runs, so a runaway child shows up as one log line
// instead of corrupting the multiplexed stream or disappearing without
// a trace.
type logWriter struct {
	name    string
	fn      func(name string, line []byte)
	log     zerolog.Logger
	maxLine int
	buf     *bytes.Buffer
	dropped int
}

const defaultMaxLine = 64 * 1024

func newLogWriter(name string, log zerolog.Logger, fn func(name string, line []byte)) *logWriter {
	return &logWriter{
		name:    name,
		fn:      fn,
		log:     log,
		maxLine: defaultMaxLine,
		buf:     bytes.NewBuffer(make([]byte, 0, defaultMaxLine)),
	}
}

func (w *logWriter) Write(b []byte) (int, error) {
	total := len(b)
	for len(b) > 0 {
		idx := bytes.IndexByte(b, '\n')
		if idx < 0 {
			w.append(b)
			break
		}
		w.append(b[:idx+1])
		w.flushLine()
		b = b[idx+1:]
	}
	return total, nil
}

// append adds data to buf, unless doing so would overrun maxLine, in
// which case buf is discarded and the loss is counted rather than
// forwarded in pieces.
func (w *logWriter) append(data []byte) {
	if w.buf.Len()+len(data) > w.maxLine {
		w.dropped++
		w.buf.Reset()
		return
	}
	w.buf.Write(data)
}

func (w *logWriter) flushLine() {
	if w.buf.Len() == 0 {
		return
	}
	w.fn(w.name, w.buf.Bytes())
	w.buf.Reset()
}

// Flush forwards any remaining buffered data with a trailing newline
// appended, and reports (then resets) any line-drop count accumulated
// since the last Flush. Not safe to call concurrently with Write.
func (w *logWriter) Flush() {
	if w.buf.Len() > 0 {
		w.buf.WriteByte('\n')
		w.flushLine()
	}
	if w.dropped > 0 {
		w.log.Warn().Str("name", w.name).Int("dropped_lines", w.dropped).
			Msg("child produced oversized log lines; some output was discarded")
		w.dropped = 0
	}
}
