package core

// State is the full ledger state interface. Implementations must be
// snapshot-able so the executor can roll back failed actions, leaving no
// partial state behind.
type State interface {
	// Market config (singleton)
	GetMarketConfig() (*MarketConfig, error)
	SetMarketConfig(cfg *MarketConfig) error

	// Rounds
	GetRound(name string) (*Round, error)
	SetRound(r *Round) error
	ListRounds() ([]*Round, error)

	// Bets
	GetBet(roundName, bettor string) (*Bet, error)
	SetBet(b *Bet) error
	DeleteBet(roundName, bettor string) error

	// Per-round per-denomination totals
	GetRoundDenomBet(roundName, denom string) (*RoundDenomBet, error)
	SetRoundDenomBet(rdb *RoundDenomBet) error

	// Treasury pools
	GetTreasuryPool(denom string) (*TreasuryPool, error)
	SetTreasuryPool(p *TreasuryPool) error
	ListTreasuryPools() ([]*TreasuryPool, error)

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// Checksum returns the deterministic hash of the complete ledger view,
	// write buffer included, without flushing anything.
	Checksum() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}
