package forecast

import (
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/danimelchor/kalshi/internal/weather"
)

// buildKNYCTemperatureMessage builds a synthetic GRIB2 message matching
// HRRR/KNYC's cached grid shape (1799, 1059) with a single temperature
// value (in hundredths of a Kelvin) at the cached grid index.
func buildKNYCTemperatureMessage(hundredthsKelvin uint16) []byte {
	const nx, ny = 1799, 1059
	const i, j = 1553, 698
	idx := nx*j + i

	packed := make([]byte, (idx+1)*2)
	binary.BigEndian.PutUint16(packed[idx*2:idx*2+2], hundredthsKelvin)

	var buf []byte
	sec0 := make([]byte, 16)
	copy(sec0[0:4], "GRIB")
	sec0[7] = 2
	buf = append(buf, sec0...)

	const sec3Len = 75
	sec3 := make([]byte, sec3Len)
	binary.BigEndian.PutUint32(sec3[0:4], uint32(sec3Len))
	sec3[4] = 3
	binary.BigEndian.PutUint32(sec3[33:37], uint32(nx))
	binary.BigEndian.PutUint32(sec3[37:41], uint32(ny))
	buf = append(buf, sec3...)

	const sec4Len = 34
	sec4 := make([]byte, sec4Len)
	binary.BigEndian.PutUint32(sec4[0:4], uint32(sec4Len))
	sec4[4] = 4
	sec4[22] = 103
	binary.BigEndian.PutUint32(sec4[24:28], uint32(2))
	buf = append(buf, sec4...)

	const sec5Len = 21
	sec5 := make([]byte, sec5Len)
	binary.BigEndian.PutUint32(sec5[0:4], uint32(sec5Len))
	sec5[4] = 5
	binary.BigEndian.PutUint32(sec5[5:9], uint32(nx*ny))
	// reference value 0, binary scale 0, decimal scale 2: Y = X / 100.
	binary.BigEndian.PutUint16(sec5[17:19], uint16(2))
	sec5[19] = 16 // bits per value
	buf = append(buf, sec5...)

	sec7Len := 5 + len(packed)
	sec7 := make([]byte, sec7Len)
	binary.BigEndian.PutUint32(sec7[0:4], uint32(sec7Len))
	sec7[4] = 7
	copy(sec7[5:], packed)
	buf = append(buf, sec7...)

	buf = append(buf, []byte("7777")...)
	return buf
}

// rollingFetchServer serves three leads' worth of HEAD/.idx/GET requests,
// one fixed temperature each, keyed by the lead-hour suffix in the URL.
func rollingFetchServer(t *testing.T, byLead map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasSuffix(path, ".idx") {
			_, _ = w.Write([]byte("1:0:d=2024010100:TMP:2 m above ground:anl:\n2:999999:d=2024010100:TMP:surface:anl:\n"))
			return
		}
		for suffix, body := range byLead {
			if strings.HasSuffix(path, suffix) {
				if r.Method == http.MethodHead {
					w.WriteHeader(http.StatusOK)
					return
				}
				_, _ = w.Write(body)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestCycleRollingFetchDecodesAllLeads(t *testing.T) {
	c := qt.New(t)

	byLead := map[string][]byte{
		"f00.grib2": buildKNYCTemperatureMessage(27215), // 272.15 K
		"f01.grib2": buildKNYCTemperatureMessage(27315), // 273.15 K
		"f02.grib2": buildKNYCTemperatureMessage(27415), // 274.15 K
	}
	srv := rollingFetchServer(t, byLead)
	defer srv.Close()

	model := weather.NewHRRR(weather.HRRRDefaultStdev)
	runTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cyc := NewCycleWithURLFunc(weather.KNYC, model, runTime, 2, true, Precomputed, srv.Client(),
		func(lead int) string { return srv.URL + "/f" + twoDigits(lead) + ".grib2" })
	results := map[int]SingleWeatherForecast{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for r := range cyc.Run(ctx) {
		c.Assert(r.Err, qt.IsNil)
		results[r.LeadHours] = r.Forecast
	}

	c.Assert(results, qt.HasLen, 3)
	for lead, wantK := range map[int]float64{0: 272.15, 1: 273.15, 2: 274.15} {
		got := results[lead].Temperature.AsKelvin()
		diff := got - wantK
		if diff < 0 {
			diff = -diff
		}
		c.Assert(diff < 0.01, qt.IsTrue)
	}
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

// TestSnapshotGrowsMonotonicallyToComplete exercises the emission
// guarantee directly: num_lead_times tracks the snapshot's size, and
// complete becomes true exactly when every lead time has arrived.
func TestSnapshotGrowsMonotonicallyToComplete(t *testing.T) {
	c := qt.New(t)

	runTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := newSnapshot(2)
	c.Assert(snap.TotalLeadTimes, qt.Equals, 3)
	c.Assert(snap.Complete(), qt.IsFalse)

	snap = snap.withInserted(SingleWeatherForecast{At: runTime, LeadHours: 0})
	c.Assert(snap.NumLeadTimes, qt.Equals, 1)
	c.Assert(snap.Complete(), qt.IsFalse)

	snap = snap.withInserted(SingleWeatherForecast{At: runTime.Add(time.Hour), LeadHours: 1})
	c.Assert(snap.NumLeadTimes, qt.Equals, 2)
	c.Assert(snap.Complete(), qt.IsFalse)

	snap = snap.withInserted(SingleWeatherForecast{At: runTime.Add(2 * time.Hour), LeadHours: 2})
	c.Assert(snap.NumLeadTimes, qt.Equals, 3)
	c.Assert(snap.Complete(), qt.IsTrue)
}
