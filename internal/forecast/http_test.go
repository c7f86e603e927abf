package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/danimelchor/kalshi/internal/weather"
)

func TestReportURLLiveAndHistorical(t *testing.T) {
	c := qt.New(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	live := ReportURL(weather.HRRR, ts, 2, false)
	c.Assert(live, qt.Equals,
		"https://nomads.ncep.noaa.gov/pub/data/nccf/com/hrrr/prod/hrrr.20240101/conus/hrrr.t00z.wrfsfcf02.grib2")

	historical := ReportURL(weather.HRRR, ts, 2, true)
	c.Assert(historical, qt.Equals,
		"https://pando-rgw01.chpc.utah.edu/hrrr/sfc/20240101/hrrr.t00z.wrfsfcf02.grib2")
}

func TestIndexParsesTempMarker(t *testing.T) {
	c := qt.New(t)

	body := "1:500:d=2024010100:TMP:2 m above ground:anl:\n2:721:d=2024010100:TMP:surface:anl:\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	start, end, err := Index(context.Background(), srv.Client(), srv.URL)
	c.Assert(err, qt.IsNil)
	c.Assert(start, qt.Equals, int64(500))
	c.Assert(end, qt.Equals, int64(721))
}

func TestIndexMissingMarkerFails(t *testing.T) {
	c := qt.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1:500:d=2024010100:TMP:surface:anl:\n"))
	}))
	defer srv.Close()

	_, _, err := Index(context.Background(), srv.Client(), srv.URL)
	c.Assert(err, qt.IsNotNil)
}

func TestHeadClassifiesStatusCodes(t *testing.T) {
	c := qt.New(t)

	for _, tc := range []struct {
		status int
		want   ReportState
	}{
		{http.StatusOK, ReportExists},
		{http.StatusNotFound, ReportDoesntExist},
		{http.StatusFound, ReportRateLimited},
	} {
		status := tc.status
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		state, err := Head(context.Background(), srv.Client(), srv.URL)
		c.Assert(err, qt.IsNil)
		c.Assert(state, qt.Equals, tc.want)
		srv.Close()
	}
}

func TestWaitForReportAppliesBackoffPolicy(t *testing.T) {
	c := qt.New(t)

	statuses := []int{http.StatusFound, http.StatusFound, http.StatusOK}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[call])
		call++
	}))
	defer srv.Close()

	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	err := WaitForReport(context.Background(), srv.Client(), srv.URL, sleep)
	c.Assert(err, qt.IsNil)
	c.Assert(slept, qt.DeepEquals, []time.Duration{120 * time.Second, 240 * time.Second})
}

func TestWaitForReportDoesntExistResetsRetries(t *testing.T) {
	c := qt.New(t)

	statuses := []int{http.StatusFound, http.StatusNotFound, http.StatusFound, http.StatusOK}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statuses[call])
		call++
	}))
	defer srv.Close()

	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	err := WaitForReport(context.Background(), srv.Client(), srv.URL, sleep)
	c.Assert(err, qt.IsNil)
	// retries resets to 0 after DoesntExist, so the next RateLimited sleep
	// is 120s again rather than continuing to double.
	c.Assert(slept, qt.DeepEquals, []time.Duration{120 * time.Second, 60 * time.Second, 120 * time.Second})
}
