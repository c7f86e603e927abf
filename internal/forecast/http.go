// Package forecast implements the HRRR report fetch/decode/fan-out
// pipeline: HTTP report discovery, GRIB2 decoding, and the rolling
// per-run fetcher that turns decoded lead times into bus-ready snapshots.
package forecast

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danimelchor/kalshi/internal/weather"
	"github.com/danimelchor/kalshi/internal/wxerr"
)

const (
	liveBaseURL       = "https://nomads.ncep.noaa.gov/pub/data/nccf/com/hrrr/prod"
	historicalBaseURL = "https://pando-rgw01.chpc.utah.edu/hrrr/sfc"
)

// ReportState is the outcome of a HEAD probe against a report URL.
type ReportState int

const (
	ReportExists ReportState = iota
	ReportDoesntExist
	ReportRateLimited
	ReportError
)

// ReportURL builds the (bit-exact) URL for model's run at ts, lead hours
// ahead, in either live or historical form.
func ReportURL(model weather.ModelKind, ts time.Time, leadHours int, historical bool) string {
	utc := ts.UTC()
	hh := fmt.Sprintf("%02d", utc.Hour())
	date := fmt.Sprintf("%04d%02d%02d", utc.Year(), utc.Month(), utc.Day())
	ll := fmt.Sprintf("%02d", leadHours)
	name := strings.ToLower(model.String())

	if historical {
		return fmt.Sprintf("%s/%s/%s.t%sz.wrfsfcf%s.grib2", historicalBaseURL, date, name, hh, ll)
	}
	return fmt.Sprintf("%s/hrrr.%s/conus/%s.t%sz.wrfsfcf%s.grib2", liveBaseURL, date, name, hh, ll)
}

// Head probes url and classifies the response: 200 -> Exists, 404 ->
// DoesntExist, 302 -> RateLimited, anything else -> Error.
func Head(ctx context.Context, client *http.Client, url string) (ReportState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ReportError, wxerr.Wrap(err, wxerr.ReportHttpError, "forecast.Head", "build request", map[string]any{"url": url})
	}
	resp, err := client.Do(req)
	if err != nil {
		return ReportError, wxerr.Wrap(err, wxerr.ReportHttpError, "forecast.Head", "request failed", map[string]any{"url": url})
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return ReportExists, nil
	case http.StatusNotFound:
		return ReportDoesntExist, nil
	case http.StatusFound:
		return ReportRateLimited, nil
	default:
		return ReportError, wxerr.New(wxerr.ReportHttpError, "forecast.Head", "unexpected status",
			map[string]any{"url": url, "status": resp.StatusCode})
	}
}

// Sleeper abstracts time.Sleep so WaitForReport's polling policy can be
// driven deterministically in tests.
type Sleeper func(time.Duration)

// WaitForReport polls Head against url until the report exists, applying
// the wait policy from the component design: on RateLimited, sleep
// 120*2^retries seconds and increment retries; on DoesntExist, sleep 60s
// and reset retries to zero; on Error, fail immediately without retrying.
// Callers in historical mode should not call WaitForReport at all — the
// archive is assumed always present.
func WaitForReport(ctx context.Context, client *http.Client, url string, sleep Sleeper) error {
	if sleep == nil {
		sleep = func(d time.Duration) { time.Sleep(d) }
	}
	retries := 0
	for {
		state, err := Head(ctx, client, url)
		if err != nil {
			return err
		}
		switch state {
		case ReportExists:
			return nil
		case ReportRateLimited:
			d := time.Duration(120*(1<<retries)) * time.Second
			retries++
			sleep(d)
		case ReportDoesntExist:
			retries = 0
			sleep(60 * time.Second)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// tmpMarker is the .idx marker line this module looks for: the 2m
// temperature field. Its immediate successor line supplies the byte
// range's end offset.
const tmpMarker = "TMP:2 m"

// Index fetches url's ".idx" sidecar and returns the byte range of the
// TMP:2 m field: the second colon-delimited field of the marker line and
// of its immediate successor.
func Index(ctx context.Context, client *http.Client, url string) (start, end int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+".idx", nil)
	if err != nil {
		return 0, 0, wxerr.Wrap(err, wxerr.ReportHttpError, "forecast.Index", "build request", map[string]any{"url": url})
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, wxerr.Wrap(err, wxerr.ReportHttpError, "forecast.Index", "request failed", map[string]any{"url": url})
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, wxerr.New(wxerr.ReportHttpError, "forecast.Index", "unexpected status",
			map[string]any{"url": url, "status": resp.StatusCode})
	}

	lines, err := readIdxLines(resp.Body)
	if err != nil {
		return 0, 0, wxerr.Wrap(err, wxerr.IndexMalformed, "forecast.Index", "read index body", nil)
	}
	return findTempRange(lines)
}

func readIdxLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func findTempRange(lines []string) (start, end int64, err error) {
	for i, line := range lines {
		if !strings.Contains(line, tmpMarker) {
			continue
		}
		if i+1 >= len(lines) {
			return 0, 0, wxerr.New(wxerr.IndexMalformed, "forecast.findTempRange", "marker has no successor line", nil)
		}
		start, err = offsetField(line)
		if err != nil {
			return 0, 0, err
		}
		end, err = offsetField(lines[i+1])
		if err != nil {
			return 0, 0, err
		}
		return start, end, nil
	}
	return 0, 0, wxerr.New(wxerr.IndexMalformed, "forecast.findTempRange", "TMP:2 m marker not found", nil)
}

func offsetField(line string) (int64, error) {
	fields := strings.Split(line, ":")
	if len(fields) < 2 {
		return 0, wxerr.New(wxerr.IndexMalformed, "forecast.offsetField", "line has fewer than 2 colon fields",
			map[string]any{"line": line})
	}
	v, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, wxerr.Wrap(err, wxerr.IndexMalformed, "forecast.offsetField", "byte offset not an integer",
			map[string]any{"line": line})
	}
	return v, nil
}

// GetReport computes the TMP:2 m byte range via Index and performs a
// ranged GET for exactly that slice. The Range header's literal trailing
// ")" is preserved verbatim per the upstream server's apparent quirk —
// see DESIGN.md's Open Question decision; it is kept for bit-exact
// compatibility, not "fixed".
func GetReport(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	start, end, err := Index(ctx, client, url)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wxerr.Wrap(err, wxerr.ReportHttpError, "forecast.GetReport", "build request", map[string]any{"url": url})
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d)", start, end))

	resp, err := client.Do(req)
	if err != nil {
		return nil, wxerr.Wrap(err, wxerr.ReportHttpError, "forecast.GetReport", "request failed", map[string]any{"url": url})
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, wxerr.New(wxerr.ReportHttpError, "forecast.GetReport", "unexpected status",
			map[string]any{"url": url, "status": resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wxerr.Wrap(err, wxerr.ReportHttpError, "forecast.GetReport", "read body", map[string]any{"url": url})
	}
	return body, nil
}
