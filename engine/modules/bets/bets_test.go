package bets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/engine"
	"github.com/openpredict/updown/events"
	"github.com/openpredict/updown/internal/testutil"
	"github.com/openpredict/updown/storage"

	_ "github.com/openpredict/updown/engine/modules/rounds"
)

const (
	creationTime int64 = 1000
	startTime    int64 = 1400
	betTime      int64 = 1100
	stopTime     int64 = 1700
)

func newTestExec(t *testing.T) (*storage.LedgerDB, *engine.Executor) {
	t.Helper()
	ledger := testutil.NewMarketLedger(t)
	return ledger, engine.New(ledger, testutil.NewOracle("1.23"), events.NewEmitter())
}

func do(t *testing.T, exec *engine.Executor, typ core.ActionType, caller string, funds []core.Coin, payload any, now int64) ([]core.PaymentOrder, error) {
	t.Helper()
	a, err := core.NewAction(typ, caller, funds, payload)
	require.NoError(t, err)
	return exec.Execute(a, now)
}

func createRound(t *testing.T, exec *engine.Executor, name string) {
	t.Helper()
	_, err := do(t, exec, core.ActionCreateRound, "creator", nil, core.CreateRoundPayload{Name: name, StartTime: startTime}, creationTime)
	require.NoError(t, err)
}

func coins(denom string, amount uint64) []core.Coin {
	return []core.Coin{{Denom: denom, Amount: amount}}
}

func TestPlaceBet(t *testing.T) {
	ledger, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 1000),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, betTime)
	require.NoError(t, err)

	bet, err := ledger.GetBet("r1", "alice")
	require.NoError(t, err)
	require.Equal(t, core.SideUp, bet.Side)
	require.Equal(t, uint64(1000), bet.Amount)
	require.Equal(t, testutil.DenomA, bet.Denom)
	require.Equal(t, betTime, bet.PlacedAt)
	require.False(t, bet.WinClaimed)

	round, err := ledger.GetRound("r1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), round.ParticipantsCount)
	require.Equal(t, uint64(1), round.UpBetsCount)
	require.Zero(t, round.DownBetsCount)
	require.Equal(t, uint64(1000), round.TotalBetAmount)
	require.Equal(t, uint64(1000), round.TotalUpBetAmount)
	require.Equal(t, []string{testutil.DenomA}, round.BetDenoms)

	rdb, err := ledger.GetRoundDenomBet("r1", testutil.DenomA)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), rdb.Amount)
}

func TestPlaceBetAggregatesPerDenom(t *testing.T) {
	ledger, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 1000),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, betTime)
	require.NoError(t, err)
	_, err = do(t, exec, core.ActionPlaceBet, "bob", coins(testutil.DenomA, 500),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideDown}, betTime+1)
	require.NoError(t, err)
	_, err = do(t, exec, core.ActionPlaceBet, "carol", coins(testutil.DenomB, 2000),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideDown}, betTime+2)
	require.NoError(t, err)

	round, err := ledger.GetRound("r1")
	require.NoError(t, err)
	require.Equal(t, uint64(3), round.ParticipantsCount)
	require.Equal(t, uint64(1), round.UpBetsCount)
	require.Equal(t, uint64(2), round.DownBetsCount)
	require.Equal(t, uint64(3500), round.TotalBetAmount)
	require.Equal(t, uint64(1000), round.TotalUpBetAmount)
	require.Equal(t, uint64(2500), round.TotalDownBetAmount)
	require.ElementsMatch(t, []string{testutil.DenomA, testutil.DenomB}, round.BetDenoms)

	rdb, err := ledger.GetRoundDenomBet("r1", testutil.DenomA)
	require.NoError(t, err)
	require.Equal(t, uint64(1500), rdb.Amount)
	rdb, err = ledger.GetRoundDenomBet("r1", testutil.DenomB)
	require.NoError(t, err)
	require.Equal(t, uint64(2000), rdb.Amount)
}

func TestPlaceBetFundsValidation(t *testing.T) {
	_, exec := newTestExec(t)
	createRound(t, exec, "r1")

	payload := core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}

	_, err := do(t, exec, core.ActionPlaceBet, "alice", nil, payload, betTime)
	require.ErrorIs(t, err, core.ErrNoCoinsSent)

	_, err = do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 0), payload, betTime)
	require.ErrorIs(t, err, core.ErrNoCoinsSent)

	_, err = do(t, exec, core.ActionPlaceBet, "alice",
		[]core.Coin{{Denom: testutil.DenomA, Amount: 100}, {Denom: testutil.DenomB, Amount: 100}}, payload, betTime)
	require.ErrorIs(t, err, core.ErrTooManyCoins)

	_, err = do(t, exec, core.ActionPlaceBet, "alice", coins("unknown", 100), payload, betTime)
	require.ErrorIs(t, err, core.ErrDenomNotSupported)
}

func TestPlaceBetInvalidSide(t *testing.T) {
	_, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 100),
		core.PlaceBetPayload{RoundName: "r1", Side: core.Side("sideways")}, betTime)
	require.Error(t, err)
}

func TestPlaceBetMissingRound(t *testing.T) {
	_, exec := newTestExec(t)

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 100),
		core.PlaceBetPayload{RoundName: "ghost", Side: core.SideUp}, betTime)
	require.ErrorIs(t, err, core.ErrRoundDoesNotExist)
}

func TestPlaceBetTwice(t *testing.T) {
	_, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 100),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, betTime)
	require.NoError(t, err)

	_, err = do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 100),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideDown}, betTime+1)
	require.ErrorIs(t, err, core.ErrBetAlreadyPlaced)
}

func TestPlaceBetAfterStart(t *testing.T) {
	_, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionStartRound, testutil.Admin, nil, core.StartRoundPayload{Name: "r1"}, startTime)
	require.NoError(t, err)

	_, err = do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 100),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, startTime+1)
	require.ErrorIs(t, err, core.ErrRoundAlreadyStarted)
}

func TestPlaceBetAfterStopWithoutStart(t *testing.T) {
	_, exec := newTestExec(t)
	createRound(t, exec, "r1")

	// A round can be stopped without ever having started. Betting into it
	// would strand the stake: withdrawal and claims are both closed.
	_, err := do(t, exec, core.ActionStopRound, testutil.Admin, nil, core.StopRoundPayload{Name: "r1"}, stopTime)
	require.NoError(t, err)

	_, err = do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 100),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, stopTime+1)
	require.ErrorIs(t, err, core.ErrRoundAlreadyEnded)
}

func TestWithdrawBet(t *testing.T) {
	ledger, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 1000),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, betTime)
	require.NoError(t, err)

	orders, err := do(t, exec, core.ActionWithdrawBet, "alice", nil,
		core.WithdrawBetPayload{RoundName: "r1"}, betTime+10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "alice", orders[0].Recipient)
	require.Equal(t, coins(testutil.DenomA, 1000), orders[0].Coins)

	_, err = ledger.GetBet("r1", "alice")
	require.ErrorIs(t, err, core.ErrNotFound)

	round, err := ledger.GetRound("r1")
	require.NoError(t, err)
	require.Zero(t, round.ParticipantsCount)
	require.Zero(t, round.UpBetsCount)
	require.Zero(t, round.TotalBetAmount)
	require.Zero(t, round.TotalUpBetAmount)

	rdb, err := ledger.GetRoundDenomBet("r1", testutil.DenomA)
	require.NoError(t, err)
	require.Zero(t, rdb.Amount)
}

func TestWithdrawBetNotFound(t *testing.T) {
	_, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionWithdrawBet, "alice", nil,
		core.WithdrawBetPayload{RoundName: "r1"}, betTime)
	require.ErrorIs(t, err, core.ErrBetNotFound)
}

func TestWithdrawBetAfterStart(t *testing.T) {
	_, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 1000),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, betTime)
	require.NoError(t, err)

	// Past the scheduled start time the bet is locked in, even if the
	// round has not been formally started yet.
	_, err = do(t, exec, core.ActionWithdrawBet, "alice", nil,
		core.WithdrawBetPayload{RoundName: "r1"}, startTime+1)
	require.ErrorIs(t, err, core.ErrRoundAlreadyStarted)
}

func TestPlaceWithdrawPlaceRestoresState(t *testing.T) {
	ledger, exec := newTestExec(t)
	createRound(t, exec, "r1")

	_, err := do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 1000),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, betTime)
	require.NoError(t, err)
	sum := ledger.Checksum()

	_, err = do(t, exec, core.ActionWithdrawBet, "alice", nil,
		core.WithdrawBetPayload{RoundName: "r1"}, betTime)
	require.NoError(t, err)

	_, err = do(t, exec, core.ActionPlaceBet, "alice", coins(testutil.DenomA, 1000),
		core.PlaceBetPayload{RoundName: "r1", Side: core.SideUp}, betTime)
	require.NoError(t, err)
	require.Equal(t, sum, ledger.Checksum())
}
