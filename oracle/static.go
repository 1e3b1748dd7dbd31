package oracle

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Static is a fixed-rate oracle for development and single-node setups.
// Rates are set out of band (e.g. via SetRate) and returned as-is.
type Static struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

// NewStatic creates a Static oracle with the given initial rates.
func NewStatic(rates map[string]decimal.Decimal) *Static {
	cp := make(map[string]decimal.Decimal, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &Static{rates: cp}
}

// SetRate sets or replaces the rate for asset.
func (s *Static) SetRate(asset string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[asset] = rate
}

func (s *Static) ExchangeRate(asset string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[asset]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no rate configured for asset %q", asset)
	}
	return rate, nil
}
