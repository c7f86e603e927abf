// Package config loads the ambient runtime configuration shared by every
// kalshi subcommand: which station and model to run the forecast pipeline
// against, and where the bus rendezvous sockets live. None of this is
// domain logic — it is the same kind of thin, optional TOML overlay on
// top of hardcoded defaults that the teacher's own userconfig package
// provides for its CLI.
package config

import (
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/danimelchor/kalshi/internal/weather"
)

// Config is the full set of values a kalshi subcommand needs that aren't
// themselves supplied as flags: which station/model the forecast
// pipeline targets, and the directory its bus endpoints rendezvous in.
type Config struct {
	Station    string `koanf:"station" default:"KNYC"`
	Model      string `koanf:"model" default:"HRRR"`
	SocketDir  string `koanf:"socket_dir" default:"/tmp"`
	Historical bool   `koanf:"historical" default:"false"`
}

// Default returns the hardcoded configuration used when no config file
// is present or a key is unset in it.
func Default() Config {
	return Config{
		Station:   "KNYC",
		Model:     "HRRR",
		SocketDir: "/tmp",
	}
}

var tomlParser = toml.Parser()

// Load reads an optional TOML file at path, overlaying it onto Default().
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), tomlParser); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, nil
			}
			return cfg, errors.Wrap(err, "unable to parse config file")
		}
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return cfg, errors.Wrap(err, "unable to unmarshal config")
	}
	return cfg, nil
}

// StationValue resolves the configured station name to its weather.Station
// value. KNYC is the only station currently modeled.
func (c Config) StationValue() (weather.Station, error) {
	switch c.Station {
	case "KNYC":
		return weather.KNYC, nil
	default:
		return weather.Station(0), errors.Newf("unknown station %q", c.Station)
	}
}

// ModelValue resolves the configured model name to a constructed
// weather.Model, calibrated with the default stdev table. HRRR is the
// only model currently modeled.
func (c Config) ModelValue() (weather.Model, error) {
	switch c.Model {
	case "HRRR":
		return weather.NewHRRR(weather.HRRRDefaultStdev), nil
	default:
		return weather.Model{}, errors.Newf("unknown model %q", c.Model)
	}
}
