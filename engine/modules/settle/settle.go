// Package settle computes win/loss outcomes and payouts for stopped rounds
// and handles admin withdrawal from the treasury pools.
//
// All monetary arithmetic is unsigned integer; percentage splits are always
// written amount * numerator / denominator so the division happens last.
package settle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/engine"
	"github.com/openpredict/updown/events"
)

func init() {
	engine.Register(core.ActionClaimWin, handleClaimWin)
	engine.Register(core.ActionWithdrawTreasury, handleWithdrawTreasury)
}

func handleClaimWin(ctx *engine.Context, payload json.RawMessage) error {
	var p core.ClaimWinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode claim_win payload: %w", err)
	}

	round, err := ctx.State.GetRound(p.RoundName)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrRoundDoesNotExist
	}
	if err != nil {
		return err
	}
	if !round.Stopped {
		return core.ErrRoundStillInProgress
	}

	bet, err := ctx.State.GetBet(p.RoundName, ctx.Caller)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrBetNotFound
	}
	if err != nil {
		return err
	}

	if round.StartPrice == nil || round.StopPrice == nil {
		return fmt.Errorf("round %q stopped without prices", p.RoundName)
	}
	start, stop := *round.StartPrice, *round.StopPrice

	// Equal prices are a push: every bettor is refunded their exact stake,
	// winner or loser alike. The claimed flag blocks a second refund.
	if stop.Equal(start) {
		if bet.WinClaimed {
			return core.ErrWinAlreadyClaimed
		}
		bet.WinClaimed = true
		if err := ctx.State.SetBet(bet); err != nil {
			return err
		}
		ctx.Pay(ctx.Caller, []core.Coin{{Denom: bet.Denom, Amount: bet.Amount}})
		ctx.Emit(events.EventWinClaimed, map[string]any{
			"round": p.RoundName, "push": true, "amount": bet.Amount, "denom": bet.Denom,
		})
		return nil
	}

	var won bool
	switch bet.Side {
	case core.SideUp:
		won = stop.GreaterThan(start)
	case core.SideDown:
		won = stop.LessThan(start)
	default:
		return fmt.Errorf("bet has unknown side %q", bet.Side)
	}
	if !won {
		return core.ErrYouLost
	}
	if bet.WinClaimed {
		return core.ErrWinAlreadyClaimed
	}

	coins, err := winnings(ctx, round, bet)
	if err != nil {
		return err
	}

	bet.WinClaimed = true
	if err := ctx.State.SetBet(bet); err != nil {
		return err
	}
	if len(coins) > 0 {
		ctx.Pay(ctx.Caller, coins)
	}
	ctx.Emit(events.EventWinClaimed, map[string]any{
		"round": p.RoundName, "push": false, "coins": coins,
	})
	return nil
}

// winnings computes the payout coins for a winning bet.
//
// A sole participant receives a fixed fraction of their own stake rather
// than the whole degenerate pool. Otherwise the winner receives, from each
// denomination's sharable pool (the round total minus the protocol fee), a
// share proportional to their stake against the round's sharable total.
// Products are taken over 128 bits so large stakes cannot wrap.
func winnings(ctx *engine.Context, round *core.Round, bet *core.Bet) ([]core.Coin, error) {
	if round.ParticipantsCount == 1 {
		amount := core.MulDiv(bet.Amount, core.SoloWinPercent, 100)
		if amount == 0 {
			return nil, nil
		}
		return []core.Coin{{Denom: bet.Denom, Amount: amount}}, nil
	}

	sharableTotal := core.MulDiv(round.TotalBetAmount, core.SharePercent, 100)
	if sharableTotal == 0 {
		return nil, nil
	}

	var coins []core.Coin
	for _, denom := range round.BetDenoms {
		rdb, err := ctx.State.GetRoundDenomBet(round.Name, denom)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sharable := core.MulDiv(rdb.Amount, core.SharePercent, 100)
		amount := core.MulDiv(bet.Amount, sharable, sharableTotal)
		if amount == 0 {
			continue
		}
		coins = append(coins, core.Coin{Denom: denom, Amount: amount})
	}
	return coins, nil
}

func handleWithdrawTreasury(ctx *engine.Context, payload json.RawMessage) error {
	var p core.WithdrawTreasuryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode withdraw_treasury payload: %w", err)
	}
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	if p.To == "" {
		return fmt.Errorf("withdrawal recipient required")
	}
	if p.Amount == 0 {
		return fmt.Errorf("withdrawal amount must be > 0")
	}

	pool, err := ctx.State.GetTreasuryPool(p.Denom)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrTreasuryDenomDoesNotExist
	}
	if err != nil {
		return err
	}
	if pool.Amount < p.Amount {
		return core.ErrInsufficientTreasuryDenomBalance
	}

	pool.Amount -= p.Amount
	if err := ctx.State.SetTreasuryPool(pool); err != nil {
		return err
	}

	ctx.Pay(p.To, []core.Coin{{Denom: p.Denom, Amount: p.Amount}})
	ctx.Emit(events.EventTreasuryWithdraw, map[string]any{
		"denom": p.Denom, "amount": p.Amount, "to": p.To,
	})
	return nil
}
