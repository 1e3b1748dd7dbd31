package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/oracle"
	"github.com/openpredict/updown/storage"
)

// Well-known identities and denoms used across engine tests.
const (
	Admin    = "admin1"
	Treasury = "treasury1"
	Asset    = "asset1"
	DenomA   = "denoma"
	DenomB   = "denomb"
)

// MarketConfig returns a two-denom market configuration with one admin.
func MarketConfig() *core.MarketConfig {
	return &core.MarketConfig{
		Admins:            []string{Admin},
		AssetDenom:        Asset,
		AcceptedBetDenoms: []string{DenomA, DenomB},
		TreasuryAddr:      Treasury,
	}
}

// NewMarketLedger returns an in-memory ledger seeded with MarketConfig,
// committed so tests start from persisted state.
func NewMarketLedger(t *testing.T) *storage.LedgerDB {
	t.Helper()
	ledger := NewLedgerDB()
	require.NoError(t, ledger.SetMarketConfig(MarketConfig()))
	require.NoError(t, ledger.Commit())
	return ledger
}

// NewOracle returns a static oracle quoting rate for the test asset.
func NewOracle(rate string) *oracle.Static {
	return oracle.NewStatic(map[string]decimal.Decimal{
		Asset: decimal.RequireFromString(rate),
	})
}
