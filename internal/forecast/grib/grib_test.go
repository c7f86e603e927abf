package grib

import (
	"encoding/binary"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
)

type testGridParams struct {
	nx, ny         int
	la1, lo1       int32 // scaled by 1e6
	di, dj         int32
	reference      float32
	binaryScale    int16
	decimalScale   int16
	bitsPerValue   uint8
	surfaceType    uint8
	surfaceScaled  int32
	packed         []byte
}

func buildMessage(p testGridParams) []byte {
	var buf []byte
	buf = append(buf, section0(0)...)
	buf = append(buf, section3(p)...)
	buf = append(buf, section4(p)...)
	buf = append(buf, section5(p)...)
	buf = append(buf, section7(p.packed)...)
	buf = append(buf, []byte("7777")...)
	return buf
}

func section0(discipline uint8) []byte {
	b := make([]byte, 16)
	copy(b[0:4], "GRIB")
	b[6] = discipline
	b[7] = 2
	return b
}

func put32(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:off+4], v)
}
func put16(b []byte, off int, v uint16) {
	binary.BigEndian.PutUint16(b[off:off+2], v)
}

func section3(p testGridParams) []byte {
	const length = 75
	b := make([]byte, length)
	put32(b, 0, uint32(length))
	b[4] = 3
	// octets 13-14 (index 12-13): template number 0 (regular lat/lon)
	put16(b, 12, 0)
	put32(b, 33, uint32(p.nx)) // octets 34-37
	put32(b, 37, uint32(p.ny)) // octets 38-41
	put32(b, 49, uint32(p.la1)) // octets 50-53
	put32(b, 53, uint32(p.lo1)) // octets 54-57
	put32(b, 66, uint32(p.di))  // octets 67-70
	put32(b, 70, uint32(p.dj))  // octets 71-74
	return b
}

func section4(p testGridParams) []byte {
	const length = 34
	b := make([]byte, length)
	put32(b, 0, uint32(length))
	b[4] = 4
	b[9] = 0  // octet 10: parameter category (temperature)
	b[10] = 0 // octet 11: parameter number (temperature)
	b[22] = p.surfaceType
	put32(b, 24, uint32(p.surfaceScaled)) // octets 25-28
	return b
}

func section5(p testGridParams) []byte {
	const length = 21
	b := make([]byte, length)
	put32(b, 0, uint32(length))
	b[4] = 5
	put32(b, 5, uint32(p.nx*p.ny)) // octets 6-9: number of data points
	put32(b, 11, math.Float32bits(p.reference)) // octets 12-15
	put16(b, 15, uint16(p.binaryScale))          // octets 16-17
	put16(b, 17, uint16(p.decimalScale))         // octets 18-19
	b[19] = p.bitsPerValue                       // octet 20
	return b
}

func section7(packed []byte) []byte {
	length := 5 + len(packed)
	b := make([]byte, length)
	put32(b, 0, uint32(length))
	b[4] = 7
	copy(b[5:], packed)
	return b
}

func baseParams() testGridParams {
	return testGridParams{
		nx: 2, ny: 2,
		la1: 40_000_000, lo1: -74_000_000,
		di: 10_000, dj: 10_000,
		reference:     270.0,
		binaryScale:   0,
		decimalScale:  0,
		bitsPerValue:  8,
		surfaceType:   103,
		surfaceScaled: 2,
		packed:        []byte{2, 3, 4, 5},
	}
}

func TestParseGridShapeAndTemperatureCandidate(t *testing.T) {
	c := qt.New(t)
	p := baseParams()
	data := buildMessage(p)

	msg, err := Parse(data)
	c.Assert(err, qt.IsNil)
	c.Assert(msg.Discipline, qt.Equals, uint8(0))

	nx, ny, ok := msg.GridShape()
	c.Assert(ok, qt.IsTrue)
	c.Assert(nx, qt.Equals, 2)
	c.Assert(ny, qt.Equals, 2)

	c.Assert(msg.Submessages, qt.HasLen, 1)
	sub := msg.Submessages[0]
	c.Assert(msg.IsTemperature2mCandidate(sub), qt.IsTrue)
}

func TestValueAtAppliesSimplePackingFormula(t *testing.T) {
	c := qt.New(t)
	p := baseParams()
	data := buildMessage(p)

	msg, err := Parse(data)
	c.Assert(err, qt.IsNil)
	sub := msg.Submessages[0]

	for idx, raw := range p.packed {
		v, ok := sub.ValueAt(idx)
		c.Assert(ok, qt.IsTrue)
		c.Assert(v, qt.Equals, float64(p.reference)+float64(raw))
	}

	_, ok := sub.ValueAt(len(p.packed))
	c.Assert(ok, qt.IsFalse)
}

func TestLatLonAtRegularGrid(t *testing.T) {
	c := qt.New(t)
	p := baseParams()
	data := buildMessage(p)

	msg, err := Parse(data)
	c.Assert(err, qt.IsNil)

	lat, lon, ok := msg.LatLonAt(0, 0)
	c.Assert(ok, qt.IsTrue)
	assertWithin(c, lat, 40.0, 1e-9)
	assertWithin(c, lon, -74.0, 1e-9)

	lat1, lon1, ok := msg.LatLonAt(1, 1)
	c.Assert(ok, qt.IsTrue)
	assertWithin(c, lat1, 39.99, 1e-9)
	assertWithin(c, lon1, -73.99, 1e-9)
}

func assertWithin(c *qt.C, got, want, eps float64) {
	c.Helper()
	d := got - want
	if d < 0 {
		d = -d
	}
	c.Assert(d <= eps, qt.IsTrue, qt.Commentf("got %v want %v", got, want))
}

func TestParseRejectsMissingMagic(t *testing.T) {
	c := qt.New(t)
	_, err := Parse(make([]byte, 20))
	c.Assert(err, qt.IsNotNil)
}
