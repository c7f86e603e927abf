package market

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTickerString(t *testing.T) {
	c := qt.New(t)
	ticker := Ticker("HIGHNY-25JUL29-B72.5")
	c.Assert(ticker.String(), qt.Equals, "HIGHNY-25JUL29-B72.5")
}

func TestPriceDollarsFormatting(t *testing.T) {
	c := qt.New(t)
	c.Assert(Price(0).Dollars(), qt.Equals, "$0.00")
	c.Assert(Price(5).Dollars(), qt.Equals, "$0.05")
	c.Assert(Price(12345).Dollars(), qt.Equals, "$123.45")
}
