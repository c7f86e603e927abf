// Package wxerr provides the typed error taxonomy for the bus, forecast
// pipeline and supervisor. It plays the role a generic "wrapped error with
// metadata" package plays in larger services: a closed set of Kinds, a
// free-form metadata bag for structured logging, and a captured cause.
package wxerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Kind is the closed taxonomy from the error handling design: each value
// names one row of the table and determines what local recovery (if any)
// the caller performs.
type Kind string

const (
	TransportIo       Kind = "transport_io"
	TransportClosed   Kind = "transport_closed"
	TransportDecode   Kind = "transport_decode"
	TransportOversize Kind = "transport_oversize"

	BusUnreachable Kind = "bus_unreachable"

	ZoneUnknown    Kind = "zone_unknown"
	InstantInvalid Kind = "instant_invalid"

	ReportUnavailable  Kind = "report_unavailable"
	ReportRateLimited  Kind = "report_rate_limited"
	ReportHttpError    Kind = "report_http_error"
	IndexMalformed     Kind = "index_malformed"
	NoTempSubmessage   Kind = "no_temp_submessage"
	ModelGridChanged   Kind = "model_grid_changed"
	ModelCacheStale    Kind = "model_cache_stale"
	IndexOutOfBounds   Kind = "index_out_of_bounds"
	DecoderFailed      Kind = "decoder_failed"

	ChildFailed Kind = "child_failed"
)

// Error is a Kind-tagged error carrying the operation that raised it,
// arbitrary structured metadata, and the wrapped cause (if any).
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Meta    map[string]any
	cause   error
}

var _ error = (*Error)(nil)

// New creates a new Kind-tagged error with no wrapped cause.
func New(kind Kind, op, msg string, meta map[string]any) error {
	return &Error{Kind: kind, Op: op, Message: msg, Meta: meta, cause: errors.WithStack(errors.New(msg))}
}

// Wrap wraps cause with the given Kind, operation and metadata. Wrap
// returns nil if cause is nil, matching eerror.Wrap's convenience.
func Wrap(cause error, kind Kind, op, msg string, meta map[string]any) error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: msg,
		Meta:    meta,
		cause:   errors.WithStack(cause),
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether err is a *Error of the given Kind, anywhere in its
// unwrap chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.cause
			continue
		}
		err = errors.Unwrap(err)
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		err = errors.Unwrap(err)
	}
	return "", false
}

// LogWithMeta attaches err and its Meta fields to a zerolog event, mirroring
// the teacher's eerror.LogWithMeta.
func LogWithMeta(evt *zerolog.Event, err error) *zerolog.Event {
	if err == nil {
		return evt
	}
	evt = evt.Err(err)
	e, ok := err.(*Error)
	if !ok {
		return evt
	}
	evt = evt.Str("kind", string(e.Kind)).Str("op", e.Op)
	for k, v := range e.Meta {
		switch v := v.(type) {
		case string:
			evt = evt.Str(k, v)
		case int:
			evt = evt.Int(k, v)
		case int64:
			evt = evt.Int64(k, v)
		case uint32:
			evt = evt.Uint32(k, v)
		case float64:
			evt = evt.Float64(k, v)
		case bool:
			evt = evt.Bool(k, v)
		case error:
			evt = evt.AnErr(k, v)
		default:
			evt = evt.Interface(k, v)
		}
	}
	return evt
}
