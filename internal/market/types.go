// Package market carries the minimal vocabulary a strategy needs to talk
// about a Kalshi market without this module implementing a Kalshi client.
package market

import "fmt"

// Ticker is a Kalshi market ticker, e.g. "HIGHNY-25JUL29-B72.5".
type Ticker string

func (t Ticker) String() string { return string(t) }

// Price is an integer number of cents, Kalshi's native price unit.
type Price int64

// Dollars renders the price as a dollar-formatted string for logging.
func (p Price) Dollars() string {
	return fmt.Sprintf("$%d.%02d", p/100, p%100)
}
