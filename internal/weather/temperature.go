// Package weather carries the closed domain vocabulary shared by the
// forecast pipeline and any strategy consuming its bus events: a
// tagged-variant Temperature, a closed enumeration of observing Stations,
// and a closed enumeration of forecast Models.
package weather

import "cmp"

// TemperatureUnit tags which of the three scales a Temperature's value is
// expressed in.
type TemperatureUnit int

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
	Kelvin
)

// Temperature is a tagged-union value: exactly one unit is ever the
// "native" representation, but every accessor can produce any of the
// three. Equality and ordering always compare Kelvin value, so two
// Temperatures built from different units compare equal iff they denote
// the same physical temperature.
type Temperature struct {
	unit  TemperatureUnit
	value float64
}

// NewCelsius, NewFahrenheit and NewKelvin construct a Temperature tagged
// with the given native unit.
func NewCelsius(v float64) Temperature    { return Temperature{unit: Celsius, value: v} }
func NewFahrenheit(v float64) Temperature { return Temperature{unit: Fahrenheit, value: v} }
func NewKelvin(v float64) Temperature     { return Temperature{unit: Kelvin, value: v} }

// AsCelsius, AsFahrenheit and AsKelvin convert t to the named scale
// regardless of its native unit.
func (t Temperature) AsCelsius() float64 {
	switch t.unit {
	case Celsius:
		return t.value
	case Fahrenheit:
		return (t.value - 32.0) * 5.0 / 9.0
	default: // Kelvin
		return t.value - 273.15
	}
}

func (t Temperature) AsFahrenheit() float64 {
	switch t.unit {
	case Celsius:
		return (t.value * 9.0 / 5.0) + 32.0
	case Fahrenheit:
		return t.value
	default: // Kelvin
		return (t.value-273.15)*9.0/5.0 + 32.0
	}
}

func (t Temperature) AsKelvin() float64 {
	switch t.unit {
	case Celsius:
		return t.value + 273.15
	case Fahrenheit:
		return (t.value-32.0)*5.0/9.0 + 273.15
	default: // Kelvin
		return t.value
	}
}

// ToCelsius, ToFahrenheit and ToKelvin return a new Temperature re-tagged
// to the named native unit, with the same physical value.
func (t Temperature) ToCelsius() Temperature    { return NewCelsius(t.AsCelsius()) }
func (t Temperature) ToFahrenheit() Temperature { return NewFahrenheit(t.AsFahrenheit()) }
func (t Temperature) ToKelvin() Temperature     { return NewKelvin(t.AsKelvin()) }

// Equal reports value equality after conversion to Kelvin.
func (t Temperature) Equal(other Temperature) bool {
	return t.AsKelvin() == other.AsKelvin()
}

// Compare orders t against other by Kelvin value, using cmp.Compare's
// total order over floats (NaN sorts below everything, consistently with
// itself, rather than comparing unequal to everything).
func (t Temperature) Compare(other Temperature) int {
	return cmp.Compare(t.AsKelvin(), other.AsKelvin())
}
