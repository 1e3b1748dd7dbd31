package core

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Round timing and split parameters. Amounts are integer base units; splits
// are computed as amount * numerator / 100, multiply before divide.
const (
	// RoundWindow is the fixed betting window: stop_time = start_time + 300s.
	RoundWindow int64 = 300
	// MinStartDelay is the minimum gap between round creation and start_time.
	MinStartDelay int64 = 300

	// FeePercent of each denomination's round total is skimmed into the
	// treasury pool when the round stops.
	FeePercent uint64 = 15
	// SharePercent is the complement of FeePercent: the sharable pool.
	SharePercent uint64 = 85
	// SoloWinPercent of the stake is paid to a winning sole participant
	// instead of a full-pool proportional share.
	SoloWinPercent uint64 = 20
)

// Side is a bettor's prediction on the reference price direction.
type Side string

const (
	SideUp   Side = "up"
	SideDown Side = "down"
)

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	switch s {
	case SideUp, SideDown:
		return true
	}
	return false
}

// Coin is an amount of a single denomination in integer base units.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

// MarketConfig is the singleton market configuration. It is persisted in the
// ledger and mutated only by admin actions.
type MarketConfig struct {
	// Admins allowed to call privileged actions. Never empty.
	Admins []string `json:"admins"`
	// AssetDenom is the reference asset whose exchange rate rounds bet on.
	AssetDenom string `json:"asset_denom"`
	// AcceptedBetDenoms are the denominations bets may be staked in.
	AcceptedBetDenoms []string `json:"accepted_bet_denoms"`
	// TreasuryAddr receives withdrawn protocol fees.
	TreasuryAddr string `json:"treasury_addr"`
}

// IsAdmin reports whether addr is a registered admin.
func (c *MarketConfig) IsAdmin(addr string) bool {
	for _, a := range c.Admins {
		if a == addr {
			return true
		}
	}
	return false
}

// AcceptsDenom reports whether denom may be used to stake a bet.
func (c *MarketConfig) AcceptsDenom(denom string) bool {
	for _, d := range c.AcceptedBetDenoms {
		if d == denom {
			return true
		}
	}
	return false
}

// Round is one timed up/down prediction round, keyed by Name.
// It transitions Created -> Started -> Stopped and never regresses;
// StartPrice and StopPrice are set exactly once, at start and stop.
type Round struct {
	Name      string `json:"name"`
	Creator   string `json:"creator"`
	CreatedAt int64  `json:"created_at"`
	StartTime int64  `json:"start_time"`
	StopTime  int64  `json:"stop_time"`

	Started    bool             `json:"started"`
	StartedAt  int64            `json:"started_at,omitempty"`
	StartPrice *decimal.Decimal `json:"start_price,omitempty"`

	Stopped   bool             `json:"stopped"`
	StoppedAt int64            `json:"stopped_at,omitempty"`
	StopPrice *decimal.Decimal `json:"stop_price,omitempty"`

	ParticipantsCount  uint64   `json:"participants_count"`
	UpBetsCount        uint64   `json:"up_bets_count"`
	DownBetsCount      uint64   `json:"down_bets_count"`
	TotalBetAmount     uint64   `json:"total_bet_amount"`
	TotalUpBetAmount   uint64   `json:"total_up_bet_amount"`
	TotalDownBetAmount uint64   `json:"total_down_bet_amount"`
	BetDenoms          []string `json:"bet_denoms,omitempty"`

	FeesClaimed bool `json:"fees_claimed"`
}

// HasBetDenom reports whether denom has already been staked in the round.
func (r *Round) HasBetDenom(denom string) bool {
	for _, d := range r.BetDenoms {
		if d == denom {
			return true
		}
	}
	return false
}

// Bet is a single user's stake in a round. At most one exists per
// (round, bettor) pair; it is deleted on pre-start withdrawal and
// WinClaimed is set exactly once on a successful claim.
type Bet struct {
	RoundName  string `json:"round_name"`
	Bettor     string `json:"bettor"`
	Side       Side   `json:"side"`
	Amount     uint64 `json:"amount"`
	Denom      string `json:"denom"`
	PlacedAt   int64  `json:"placed_at"`
	WinClaimed bool   `json:"win_claimed"`
}

// RoundDenomBet is the running total staked in one denomination for one round.
type RoundDenomBet struct {
	RoundName string `json:"round_name"`
	Denom     string `json:"denom"`
	Amount    uint64 `json:"amount"`
}

// TreasuryPool is the accumulated, not-yet-withdrawn fee balance for one
// denomination across all rounds.
type TreasuryPool struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

// PaymentOrder instructs the host to transfer coins to a recipient.
// The ledger emits orders; it never performs the transfer itself.
type PaymentOrder struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Coins     []Coin `json:"coins"`
}

// ActionType identifies the kind of operation an action performs.
type ActionType string

const (
	ActionCreateRound      ActionType = "create_round"
	ActionStartRound       ActionType = "start_round"
	ActionStopRound        ActionType = "stop_round"
	ActionPlaceBet         ActionType = "place_bet"
	ActionWithdrawBet      ActionType = "withdraw_bet"
	ActionClaimWin         ActionType = "claim_win"
	ActionWithdrawTreasury ActionType = "withdraw_treasury"

	ActionUpdateAdmins            ActionType = "update_admins"
	ActionUpdateAssetDenom        ActionType = "update_asset_denom"
	ActionUpdateAcceptedBetDenoms ActionType = "update_accepted_bet_denoms"
	ActionUpdateTreasuryAddr      ActionType = "update_treasury_addr"
)

// Action is the atomic unit of work against the ledger. Caller identity and
// attached funds are established by the host; the ledger trusts them.
type Action struct {
	Type    ActionType      `json:"type"`
	Caller  string          `json:"caller"`
	Funds   []Coin          `json:"funds,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// NewAction builds an action with a marshalled payload.
func NewAction(typ ActionType, caller string, funds []Coin, payload any) (*Action, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Action{Type: typ, Caller: caller, Funds: funds, Payload: raw}, nil
}

// ---- Payload types ----

// CreateRoundPayload creates a new round.
type CreateRoundPayload struct {
	Name      string `json:"name"`
	StartTime int64  `json:"start_time"`
}

// StartRoundPayload starts a created round and records the start price.
type StartRoundPayload struct {
	Name string `json:"name"`
}

// StopRoundPayload stops a started round, records the stop price and skims
// protocol fees into the treasury pools.
type StopRoundPayload struct {
	Name string `json:"name"`
}

// PlaceBetPayload stakes the attached funds on one side of a round.
type PlaceBetPayload struct {
	RoundName string `json:"round_name"`
	Side      Side   `json:"side"`
}

// WithdrawBetPayload withdraws a bet before the round starts.
type WithdrawBetPayload struct {
	RoundName string `json:"round_name"`
}

// ClaimWinPayload claims a payout (or push refund) from a stopped round.
type ClaimWinPayload struct {
	RoundName string `json:"round_name"`
}

// WithdrawTreasuryPayload withdraws accumulated fees from one pool.
type WithdrawTreasuryPayload struct {
	Denom  string `json:"denom"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// UpdateAdminsPayload replaces the admin set.
type UpdateAdminsPayload struct {
	Admins []string `json:"admins"`
}

// UpdateAssetDenomPayload changes the reference asset.
type UpdateAssetDenomPayload struct {
	AssetDenom string `json:"asset_denom"`
}

// UpdateAcceptedBetDenomsPayload replaces the accepted bet denominations.
type UpdateAcceptedBetDenomsPayload struct {
	AcceptedBetDenoms []string `json:"accepted_bet_denoms"`
}

// UpdateTreasuryAddrPayload changes the fee recipient address.
type UpdateTreasuryAddrPayload struct {
	NewAddress string `json:"new_address"`
}
