package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a fixed-point tick count. All matching arithmetic operates on
// Price directly — never on decimal.Decimal or float64 — so that two
// runs with identical inputs produce bit-identical traces.
type Price int64

// Qty is a positive integer quantity.
type Qty int64

// PriceScale is the number of ticks per whole unit of quoted price, used
// only when converting to and from decimal strings at the config/CLI/
// report boundary.
const PriceScale = 10_000

// MaxPrice and MinPrice are the sentinel prices a market order is
// submitted at: a buy market order is a limit at MaxPrice, a sell
// market order a limit at MinPrice, so the matching loop never needs a
// separate branch for order type.
const (
	MaxPrice Price = 1<<62 - 1
	MinPrice Price = 1
)

// ParsePrice converts a decimal string ("100.0050") into ticks.
func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	scaled := d.Mul(decimal.NewFromInt(PriceScale))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("parse price %q: finer than tick scale %d", s, PriceScale)
	}
	return Price(scaled.IntPart()), nil
}

// FormatPrice renders ticks back into a decimal string for display.
func (p Price) FormatPrice() string {
	return decimal.NewFromInt(int64(p)).
		DivRound(decimal.NewFromInt(PriceScale), 8).
		StringFixed(4)
}

// Decimal returns the exact decimal.Decimal value of p, for reports
// that need further arithmetic (averages, slippage) without floats.
func (p Price) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(p)).Div(decimal.NewFromInt(PriceScale))
}
