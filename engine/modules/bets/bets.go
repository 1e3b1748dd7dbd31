// Package bets owns per-user bet records and the per-round aggregate
// bookkeeping: placement before a round starts, and symmetric withdrawal
// that restores every counter place_bet touched.
package bets

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/engine"
	"github.com/openpredict/updown/events"
)

func init() {
	engine.Register(core.ActionPlaceBet, handlePlaceBet)
	engine.Register(core.ActionWithdrawBet, handleWithdrawBet)
}

func handlePlaceBet(ctx *engine.Context, payload json.RawMessage) error {
	var p core.PlaceBetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode place_bet payload: %w", err)
	}
	if !p.Side.Valid() {
		return fmt.Errorf("unknown side %q", p.Side)
	}

	cfg, err := ctx.MarketConfig()
	if err != nil {
		return err
	}
	if len(ctx.Funds) == 0 {
		return core.ErrNoCoinsSent
	}
	if len(ctx.Funds) > 1 {
		return core.ErrTooManyCoins
	}
	coin := ctx.Funds[0]
	if coin.Amount == 0 {
		return core.ErrNoCoinsSent
	}
	if !cfg.AcceptsDenom(coin.Denom) {
		return core.ErrDenomNotSupported
	}

	round, err := ctx.State.GetRound(p.RoundName)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrRoundDoesNotExist
	}
	if err != nil {
		return err
	}
	if round.Stopped {
		return core.ErrRoundAlreadyEnded
	}
	if round.Started && round.StartTime < ctx.Now {
		return core.ErrRoundAlreadyStarted
	}

	if _, err := ctx.State.GetBet(p.RoundName, ctx.Caller); err == nil {
		return core.ErrBetAlreadyPlaced
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking bet: %w", err)
	}

	if coin.Amount > math.MaxUint64-round.TotalBetAmount {
		return fmt.Errorf("bet amount overflows round total")
	}

	bet := &core.Bet{
		RoundName: p.RoundName,
		Bettor:    ctx.Caller,
		Side:      p.Side,
		Amount:    coin.Amount,
		Denom:     coin.Denom,
		PlacedAt:  ctx.Now,
	}
	if err := ctx.State.SetBet(bet); err != nil {
		return err
	}

	switch p.Side {
	case core.SideUp:
		round.UpBetsCount++
		round.TotalUpBetAmount += coin.Amount
	case core.SideDown:
		round.DownBetsCount++
		round.TotalDownBetAmount += coin.Amount
	}
	round.TotalBetAmount += coin.Amount
	round.ParticipantsCount++
	if !round.HasBetDenom(coin.Denom) {
		round.BetDenoms = append(round.BetDenoms, coin.Denom)
	}
	if err := ctx.State.SetRound(round); err != nil {
		return err
	}

	rdb, err := ctx.State.GetRoundDenomBet(p.RoundName, coin.Denom)
	if errors.Is(err, core.ErrNotFound) {
		rdb = &core.RoundDenomBet{RoundName: p.RoundName, Denom: coin.Denom}
	} else if err != nil {
		return err
	}
	rdb.Amount += coin.Amount
	if err := ctx.State.SetRoundDenomBet(rdb); err != nil {
		return err
	}

	ctx.Emit(events.EventBetPlaced, map[string]any{
		"round": p.RoundName, "side": string(p.Side), "denom": coin.Denom, "amount": coin.Amount,
	})
	return nil
}

func handleWithdrawBet(ctx *engine.Context, payload json.RawMessage) error {
	var p core.WithdrawBetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode withdraw_bet payload: %w", err)
	}

	round, err := ctx.State.GetRound(p.RoundName)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrRoundDoesNotExist
	}
	if err != nil {
		return err
	}
	if round.StartTime < ctx.Now || round.Started {
		return core.ErrRoundAlreadyStarted
	}

	bet, err := ctx.State.GetBet(p.RoundName, ctx.Caller)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrBetNotFound
	}
	if err != nil {
		return err
	}

	switch bet.Side {
	case core.SideUp:
		round.UpBetsCount--
		round.TotalUpBetAmount -= bet.Amount
	case core.SideDown:
		round.DownBetsCount--
		round.TotalDownBetAmount -= bet.Amount
	}
	round.TotalBetAmount -= bet.Amount
	round.ParticipantsCount--
	if err := ctx.State.SetRound(round); err != nil {
		return err
	}

	rdb, err := ctx.State.GetRoundDenomBet(p.RoundName, bet.Denom)
	if err == nil {
		rdb.Amount -= bet.Amount
		if err := ctx.State.SetRoundDenomBet(rdb); err != nil {
			return err
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	if err := ctx.State.DeleteBet(p.RoundName, ctx.Caller); err != nil {
		return err
	}

	ctx.Pay(ctx.Caller, []core.Coin{{Denom: bet.Denom, Amount: bet.Amount}})
	ctx.Emit(events.EventBetWithdrawn, map[string]any{
		"round": p.RoundName, "denom": bet.Denom, "amount": bet.Amount,
	})
	return nil
}
