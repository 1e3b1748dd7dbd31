// Package oracle provides the exchange-rate capability consumed by the
// round lifecycle: a rate lookup for the configured reference asset at
// start and stop boundaries. A failed lookup fails the whole action.
package oracle

import "github.com/shopspring/decimal"

// Oracle returns the current exchange rate for an asset as a fixed-point
// decimal. Implementations must be synchronous; the engine mutates no state
// until the rate call has succeeded.
type Oracle interface {
	ExchangeRate(asset string) (decimal.Decimal, error)
}
