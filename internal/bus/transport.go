package bus

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/danimelchor/kalshi/internal/wxerr"
)

// MaxFrameSize is the fixed upper bound on a framed message's payload
// length. A length prefix claiming more than this fails fast with
// TransportOversize before the payload buffer is allocated.
const MaxFrameSize = 16 * 1024 * 1024 // 16 MiB

// WriteOne serializes event with the stdlib binary codec (gob), prefixes it
// with its little-endian uint32 length, and writes length-then-payload to
// w. Any write failure — including a partial write — is terminal for the
// stream and surfaces as wxerr.TransportIo.
func WriteOne[T any](w io.Writer, event Event[T]) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(event); err != nil {
		return wxerr.Wrap(err, wxerr.TransportDecode, "bus.transport.WriteOne", "encode event", nil)
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(buf.Len()))

	if _, err := w.Write(lenBuf[:]); err != nil {
		return wxerr.Wrap(err, wxerr.TransportIo, "bus.transport.WriteOne", "write length prefix", nil)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return wxerr.Wrap(err, wxerr.TransportIo, "bus.transport.WriteOne", "write payload", nil)
	}
	return nil
}

// ReadOne reads exactly one framed Event[T] from r.
//
// A clean EOF at the very start of a frame (zero bytes of the length
// prefix read) surfaces as wxerr.TransportClosed — the ordinary way a
// subscriber learns its publisher went away. Any other short read,
// including one that happens mid-frame, surfaces as wxerr.TransportIo.
// A length prefix exceeding MaxFrameSize fails with wxerr.TransportOversize
// before the payload buffer is allocated. A malformed payload fails with
// wxerr.TransportDecode.
func ReadOne[T any](r io.Reader) (Event[T], error) {
	var zero Event[T]

	var lenBuf [4]byte
	n, err := io.ReadFull(r, lenBuf[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return zero, wxerr.Wrap(err, wxerr.TransportClosed, "bus.transport.ReadOne", "peer closed", nil)
		}
		return zero, wxerr.Wrap(err, wxerr.TransportIo, "bus.transport.ReadOne", "short read on length prefix", nil)
	}

	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return zero, wxerr.New(wxerr.TransportOversize, "bus.transport.ReadOne", "frame exceeds max size",
			map[string]any{"length": int64(length), "max": int64(MaxFrameSize)})
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return zero, wxerr.Wrap(err, wxerr.TransportIo, "bus.transport.ReadOne", "short read on payload", nil)
	}

	var event Event[T]
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&event); err != nil {
		return zero, wxerr.Wrap(err, wxerr.TransportDecode, "bus.transport.ReadOne", "decode event", nil)
	}
	return event, nil
}
