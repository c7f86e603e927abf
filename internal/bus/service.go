package bus

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ServiceName is the closed enumeration of bus topics. Each value maps
// deterministically to a filesystem rendezvous path; the mapping is pure
// and is the only process-wide state the bus core depends on.
type ServiceName int

const (
	Telegram ServiceName = iota
	WeatherForecast
	HourlyWeatherTimeseries
	HourlyWeatherTable
	DailyWeatherReport

	numServices
)

func (s ServiceName) String() string {
	switch s {
	case Telegram:
		return "Telegram"
	case WeatherForecast:
		return "WeatherForecast"
	case HourlyWeatherTimeseries:
		return "HourlyWeatherTimeseries"
	case HourlyWeatherTable:
		return "HourlyWeatherTable"
	case DailyWeatherReport:
		return "DailyWeatherReport"
	default:
		return fmt.Sprintf("ServiceName(%d)", int(s))
	}
}

// snakeCase lowercases a PascalCase service name and inserts underscores
// before interior capitals, e.g. "WeatherForecast" -> "weather_forecast".
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// Registry maps service names to their rendezvous socket path. The zero
// value uses SocketDir "/tmp" as spec.md requires; tests can point it at a
// scratch directory.
type Registry struct {
	// SocketDir is the directory rendezvous sockets are created under.
	// Defaults to /tmp when empty.
	SocketDir string
}

// DefaultRegistry is the registry used when no socket directory override
// is configured.
var DefaultRegistry = Registry{SocketDir: "/tmp"}

// Endpoint returns the rendezvous path for service, e.g.
// "/tmp/weather_forecast.sock".
func (r Registry) Endpoint(service ServiceName) string {
	dir := r.SocketDir
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, snakeCase(service.String())+".sock")
}

// Endpoint is a convenience wrapper around DefaultRegistry.Endpoint.
func Endpoint(service ServiceName) string {
	return DefaultRegistry.Endpoint(service)
}
