// Package grib implements the minimal subset of GRIB2 (WMO FM 92) this
// module needs: scanning a message's sections, reading the grid
// definition's shape and regular lat/lon geometry, reading the product
// definition's parameter and fixed-surface identifiers, and unpacking a
// single value out of a simple-packing (template 5.0) data section.
//
// It is not a general GRIB2 decoder: complex/JPEG2000 packing, spectral
// fields, and non-regular-lat/lon grid geometry are out of scope. Full
// field decoding is expensive and this module only ever needs one
// scalar value per report; see internal/forecast/decode.go.
package grib

import (
	"encoding/binary"
	"math"

	"github.com/danimelchor/kalshi/internal/wxerr"
)

const (
	sectionGridDefinition    = 3
	sectionProductDefinition = 4
	sectionDataRepresentation = 5
	sectionData              = 7

	regularLatLonTemplate = 0

	temperatureCategory = 0
	temperatureNumber   = 0
	surfaceType2m       = 103
	surfaceScaled2m     = 2
)

// section is one raw GRIB2 section, including its 4-byte length and
// 1-byte section-number header, with octets numbered as the WMO spec
// numbers them (octet 1 is section.raw[0]).
type section struct {
	number uint8
	raw    []byte
}

func (s section) octet(n int) byte { return s.raw[n-1] }

func (s section) octets(from, to int) []byte { return s.raw[from-1 : to] }

// Message is one parsed GRIB2 message: its discipline, grid shape and
// geometry (if a regular lat/lon grid), and the product/data section
// pairs sharing that grid.
type Message struct {
	Discipline uint8

	GridNx, GridNy int
	gridKnown      bool

	hasLatLon bool
	la1, lo1  float64 // degrees
	di, dj    float64 // degrees

	pendingProductDef *section
	pendingDataRepr   *section

	Submessages []Submessage
}

// Submessage pairs one product definition (what the field represents)
// with its data representation and packed bytes (how to unpack it).
type Submessage struct {
	ParameterCategory uint8
	ParameterNumber   uint8

	FirstSurfaceType        uint8
	FirstSurfaceScaledValue int32

	reference          float32
	binaryScaleFactor  int16
	decimalScaleFactor int16
	bitsPerValue        uint8
	packed              []byte
	numDataPoints       int
}

// IsTemperature2mCandidate reports whether this submessage is a 2m-above-ground
// temperature field — discipline 0, category 0, parameter 0, first fixed
// surface type 103 at scaled value 2.
func (m Message) IsTemperature2mCandidate(s Submessage) bool {
	return m.Discipline == 0 &&
		s.ParameterCategory == temperatureCategory &&
		s.ParameterNumber == temperatureNumber &&
		s.FirstSurfaceType == surfaceType2m &&
		s.FirstSurfaceScaledValue == surfaceScaled2m
}

// Parse scans data into a Message. It supports exactly one message per
// byte slice (the ranged GET in the HTTP layer already isolates a single
// field's bytes, so this is never asked to scan a multi-message file).
func Parse(data []byte) (*Message, error) {
	if len(data) < 16 {
		return nil, wxerr.New(wxerr.DecoderFailed, "grib.Parse", "input shorter than section 0", nil)
	}
	if string(data[0:4]) != "GRIB" {
		return nil, wxerr.New(wxerr.DecoderFailed, "grib.Parse", "missing GRIB magic", nil)
	}
	discipline := data[6]

	msg := &Message{Discipline: discipline}

	offset := 16
	for offset+5 <= len(data) {
		if string(data[offset:min(offset+4, len(data))]) == "7777" {
			break
		}
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		if length < 5 || offset+length > len(data) {
			return nil, wxerr.New(wxerr.DecoderFailed, "grib.Parse", "section length out of bounds",
				map[string]any{"offset": offset, "length": length})
		}
		sec := section{number: data[offset+4], raw: data[offset : offset+length]}

		switch sec.number {
		case sectionGridDefinition:
			parseGridDefinition(msg, sec)
		case sectionProductDefinition:
			msg.pendingProductDef = &sec
		case sectionDataRepresentation:
			msg.pendingDataRepr = &sec
		case sectionData:
			if sub, ok := msg.finishSubmessage(sec); ok {
				msg.Submessages = append(msg.Submessages, sub)
			}
		}

		offset += length
	}

	return msg, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func parseGridDefinition(msg *Message, sec section) {
	if len(sec.raw) < 41 {
		return
	}
	msg.GridNx = int(binary.BigEndian.Uint32(sec.octets(34, 37)))
	msg.GridNy = int(binary.BigEndian.Uint32(sec.octets(38, 41)))
	msg.gridKnown = true

	templateNumber := binary.BigEndian.Uint16(sec.octets(13, 14))
	if templateNumber != regularLatLonTemplate || len(sec.raw) < 74 {
		return
	}
	msg.la1 = scaledInt32Degrees(sec.octets(50, 53))
	msg.lo1 = scaledInt32Degrees(sec.octets(54, 57))
	msg.di = scaledInt32Degrees(sec.octets(67, 70))
	msg.dj = scaledInt32Degrees(sec.octets(71, 74))
	msg.hasLatLon = true
}

func scaledInt32Degrees(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / 1e6
}

// finishSubmessage builds a Submessage once a data section closes out the
// most recently seen product-definition/data-representation pair.
func (m *Message) finishSubmessage(data section) (Submessage, bool) {
	if m.pendingProductDef == nil || m.pendingDataRepr == nil {
		return Submessage{}, false
	}
	pd := m.pendingProductDef
	dr := m.pendingDataRepr
	m.pendingProductDef, m.pendingDataRepr = nil, nil

	if len(pd.raw) < 34 || len(dr.raw) < 21 {
		return Submessage{}, false
	}

	sub := Submessage{
		ParameterCategory:       pd.octet(10),
		ParameterNumber:         pd.octet(11),
		FirstSurfaceType:        pd.octet(23),
		FirstSurfaceScaledValue: int32(binary.BigEndian.Uint32(pd.octets(25, 28))),

		reference:          math.Float32frombits(binary.BigEndian.Uint32(dr.octets(12, 15))),
		binaryScaleFactor:  int16(binary.BigEndian.Uint16(dr.octets(16, 17))),
		decimalScaleFactor: int16(binary.BigEndian.Uint16(dr.octets(18, 19))),
		bitsPerValue:       dr.octet(20),
		packed:             data.raw[5:],
		numDataPoints:      int(binary.BigEndian.Uint32(dr.octets(6, 9))),
	}
	return sub, true
}

// GridShape returns the grid's (nx, ny), and whether a grid definition
// section has been seen yet.
func (m Message) GridShape() (nx, ny int, ok bool) {
	return m.GridNx, m.GridNy, m.gridKnown
}

// LatLonAt returns the (lat, lon) in degrees of grid cell (i, j) under
// the regular lat/lon grid assumption: row-major, i the column index, j
// the row index, starting at (la1, lo1) and stepping by (dj, di). Returns
// ok=false if this message's grid is not a recognized regular lat/lon
// grid (e.g. HRRR's native Lambert Conformal grid) — ComputeMode decoding
// is only supported for regular lat/lon grids; see decode.go.
func (m Message) LatLonAt(i, j int) (lat, lon float64, ok bool) {
	if !m.hasLatLon {
		return 0, 0, false
	}
	lat = m.la1 - float64(j)*m.dj
	lon = m.lo1 + float64(i)*m.di
	return lat, lon, true
}

// ValueAt unpacks the idx-th value (0-based, row-major) out of sub's
// simple-packed (template 5.0) data, applying Y = (R + X*2^E) / 10^D.
func (s Submessage) ValueAt(idx int) (float64, bool) {
	if idx < 0 || idx >= s.numDataPoints {
		return 0, false
	}
	x, ok := s.unpackBits(idx)
	if !ok {
		return 0, false
	}
	e := math.Pow(2, float64(s.binaryScaleFactor))
	d := math.Pow(10, float64(s.decimalScaleFactor))
	return (float64(s.reference) + float64(x)*e) / d, true
}

// unpackBits reads the idx-th bitsPerValue-wide big-endian unsigned
// integer out of the packed bit stream.
func (s Submessage) unpackBits(idx int) (uint32, bool) {
	bits := int(s.bitsPerValue)
	if bits == 0 || bits > 32 {
		return 0, false
	}
	bitOffset := idx * bits
	byteOffset := bitOffset / 8
	bitShift := bitOffset % 8

	need := (bitShift + bits + 7) / 8
	if byteOffset+need > len(s.packed) {
		return 0, false
	}

	var acc uint64
	for i := 0; i < need; i++ {
		acc = acc<<8 | uint64(s.packed[byteOffset+i])
	}
	totalBits := need * 8
	shift := totalBits - bitShift - bits
	mask := uint64(1)<<uint(bits) - 1
	return uint32((acc >> uint(shift)) & mask), true
}
