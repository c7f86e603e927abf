package forecast

import (
	"time"

	"github.com/danimelchor/kalshi/internal/forecast/grib"
	"github.com/danimelchor/kalshi/internal/weather"
	"github.com/danimelchor/kalshi/internal/wxerr"
)

// ComputeMode selects how the decoder locates the grid cell closest to a
// station: Precomputed trusts the model's cached (i, j); Compute derives
// it from the report's own lat/lon grid and cross-checks it against the
// cache.
type ComputeMode int

const (
	Precomputed ComputeMode = iota
	Compute
)

// SingleWeatherForecast is one decoded lead time's temperature.
type SingleWeatherForecast struct {
	Temperature weather.Temperature
	At          time.Time
	LeadHours   int
}

// Decode parses raw GRIB2 bytes and extracts the 2m temperature closest
// to station under model, per mode. runTime is the model run's reference
// time; leadHours is added to it to produce the forecast's valid time.
func Decode(raw []byte, station weather.Station, model weather.Model, runTime time.Time, leadHours int, mode ComputeMode) (SingleWeatherForecast, error) {
	msg, err := grib.Parse(raw)
	if err != nil {
		return SingleWeatherForecast{}, err
	}

	sub, err := findTemperatureSubmessage(msg)
	if err != nil {
		return SingleWeatherForecast{}, err
	}

	nx, ny, ok := msg.GridShape()
	if !ok {
		return SingleWeatherForecast{}, wxerr.New(wxerr.NoTempSubmessage, "forecast.Decode", "no grid definition section seen", nil)
	}

	expectedI, expectedJ, expectedNx, expectedNy, known := model.GridLocation(station)
	if !known {
		return SingleWeatherForecast{}, wxerr.New(wxerr.NoTempSubmessage, "forecast.Decode", "model has no cached grid location for station",
			map[string]any{"station": station.String(), "model": model.Kind().String()})
	}
	if nx != expectedNx || ny != expectedNy {
		return SingleWeatherForecast{}, wxerr.New(wxerr.ModelGridChanged, "forecast.Decode", "grid shape does not match cached shape",
			map[string]any{"expected_nx": expectedNx, "expected_ny": expectedNy, "actual_nx": nx, "actual_ny": ny})
	}

	var kelvin float64
	switch mode {
	case Precomputed:
		kelvin, err = decodePrecomputed(sub, nx, expectedI, expectedJ)
	case Compute:
		kelvin, err = decodeCompute(msg, sub, station, nx, ny, expectedI, expectedJ)
	}
	if err != nil {
		return SingleWeatherForecast{}, err
	}

	return SingleWeatherForecast{
		Temperature: weather.NewKelvin(kelvin).ToFahrenheit(),
		At:          runTime.Add(time.Duration(leadHours) * time.Hour),
		LeadHours:   leadHours,
	}, nil
}

func findTemperatureSubmessage(msg *grib.Message) (grib.Submessage, error) {
	for _, sub := range msg.Submessages {
		if msg.IsTemperature2mCandidate(sub) {
			return sub, nil
		}
	}
	return grib.Submessage{}, wxerr.New(wxerr.NoTempSubmessage, "forecast.findTemperatureSubmessage",
		"no 2m temperature submessage found", nil)
}

func decodePrecomputed(sub grib.Submessage, nx, i, j int) (float64, error) {
	idx := nx*j + i
	v, ok := sub.ValueAt(idx)
	if !ok {
		return 0, wxerr.New(wxerr.IndexOutOfBounds, "forecast.decodePrecomputed", "precomputed index out of range",
			map[string]any{"idx": idx, "nx": nx})
	}
	return v, nil
}

func decodeCompute(msg *grib.Message, sub grib.Submessage, station weather.Station, nx, ny, cachedI, cachedJ int) (float64, error) {
	target := station.LatLon()

	bestIdx := -1
	bestI, bestJ := 0, 0
	bestDist := 0.0

	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			lat, lon, ok := msg.LatLonAt(i, j)
			if !ok {
				return 0, wxerr.New(wxerr.DecoderFailed, "forecast.decodeCompute",
					"report grid is not a recognized regular lat/lon grid; compute mode unsupported for this grid template", nil)
			}
			d := weather.LatLon{Lat: lat, Lon: lon}.EuclideanSq(target)
			idx := nx*j + i
			if bestIdx == -1 || d < bestDist {
				bestIdx, bestI, bestJ, bestDist = idx, i, j, d
			}
		}
	}
	if bestIdx == -1 {
		return 0, wxerr.New(wxerr.DecoderFailed, "forecast.decodeCompute", "no data points found in submessage", nil)
	}

	if bestI != cachedI || bestJ != cachedJ {
		return 0, wxerr.New(wxerr.ModelCacheStale, "forecast.decodeCompute", "computed grid location differs from cache",
			map[string]any{"cached_i": cachedI, "cached_j": cachedJ, "computed_i": bestI, "computed_j": bestJ})
	}

	v, ok := sub.ValueAt(bestIdx)
	if !ok {
		return 0, wxerr.New(wxerr.IndexOutOfBounds, "forecast.decodeCompute", "computed index out of range",
			map[string]any{"idx": bestIdx})
	}
	return v, nil
}
