package bus

import (
	"time"

	"github.com/danimelchor/kalshi/internal/wxerr"
)

// ZonedInstant pairs a UTC instant with an IANA zone name. It round-trips
// exactly: the deserialized instant equals the original UTC moment, and
// the zone name must be a valid IANA identifier or deserialization fails.
type ZonedInstant struct {
	UTCSeconds int64
	ZoneName   string
}

// NewZonedInstant builds a ZonedInstant from a time.Time, recording its UTC
// instant and the IANA name of its location.
func NewZonedInstant(t time.Time) ZonedInstant {
	return ZonedInstant{
		UTCSeconds: t.Unix(),
		ZoneName:   t.Location().String(),
	}
}

// Time reconstructs the zoned time.Time this instant represents. It fails
// with wxerr.ZoneUnknown if ZoneName isn't a loadable IANA identifier.
func (z ZonedInstant) Time() (time.Time, error) {
	loc, err := time.LoadLocation(z.ZoneName)
	if err != nil {
		return time.Time{}, wxerr.Wrap(err, wxerr.ZoneUnknown, "bus.envelope.Time",
			"unknown IANA zone", map[string]any{"zone": z.ZoneName})
	}
	return time.Unix(z.UTCSeconds, 0).In(loc), nil
}

// Add returns a new ZonedInstant advanced by d, keeping the same zone.
func (z ZonedInstant) Add(d time.Duration) ZonedInstant {
	return ZonedInstant{UTCSeconds: z.UTCSeconds + int64(d.Seconds()), ZoneName: z.ZoneName}
}

// Before reports whether z sorts before other: ordered by UTC instant,
// ties broken by zone name.
func (z ZonedInstant) Before(other ZonedInstant) bool {
	if z.UTCSeconds != other.UTCSeconds {
		return z.UTCSeconds < other.UTCSeconds
	}
	return z.ZoneName < other.ZoneName
}

// Equal reports whether z and other denote the same instant and zone.
func (z ZonedInstant) Equal(other ZonedInstant) bool {
	return z.UTCSeconds == other.UTCSeconds && z.ZoneName == other.ZoneName
}

// Event is the envelope written on the bus: a monotonic (wrap-on-overflow)
// id, the typed payload, and the zoned publish time. Created at publish
// time and immutable thereafter.
type Event[T any] struct {
	ID      uint32
	Message T
	TS      ZonedInstant
}

// NewEvent stamps message with id and the zoned time now, kept in now's
// own location.
func NewEvent[T any](id uint32, message T, now time.Time) Event[T] {
	return Event[T]{ID: id, Message: message, TS: NewZonedInstant(now)}
}
