// Package rounds owns the round lifecycle: creation, the start transition
// that records the start price, and the stop transition that records the
// stop price and skims protocol fees into the treasury pools.
package rounds

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/engine"
	"github.com/openpredict/updown/events"
)

func init() {
	engine.Register(core.ActionCreateRound, handleCreateRound)
	engine.Register(core.ActionStartRound, handleStartRound)
	engine.Register(core.ActionStopRound, handleStopRound)
}

func handleCreateRound(ctx *engine.Context, payload json.RawMessage) error {
	var p core.CreateRoundPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode create_round payload: %w", err)
	}
	if p.Name == "" || strings.Contains(p.Name, ":") {
		return fmt.Errorf("round name %q must be non-empty and must not contain ':'", p.Name)
	}
	if p.StartTime < ctx.Now+core.MinStartDelay {
		return core.ErrInvalidStartTime
	}

	// Distinguish DB errors from not-found when checking uniqueness.
	if _, err := ctx.State.GetRound(p.Name); err == nil {
		return core.ErrRoundAlreadyExists
	} else if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("checking round %q: %w", p.Name, err)
	}

	round := &core.Round{
		Name:      p.Name,
		Creator:   ctx.Caller,
		CreatedAt: ctx.Now,
		StartTime: p.StartTime,
		StopTime:  p.StartTime + core.RoundWindow,
	}
	if err := ctx.State.SetRound(round); err != nil {
		return err
	}

	ctx.Emit(events.EventRoundCreated, map[string]any{
		"round": p.Name, "start_time": p.StartTime, "stop_time": round.StopTime,
	})
	return nil
}

func handleStartRound(ctx *engine.Context, payload json.RawMessage) error {
	var p core.StartRoundPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode start_round payload: %w", err)
	}
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}

	round, err := ctx.State.GetRound(p.Name)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrRoundDoesNotExist
	}
	if err != nil {
		return err
	}
	if round.Started {
		return core.ErrRoundAlreadyStarted
	}
	if ctx.Now > round.StopTime {
		return core.ErrRoundStopTimePassed
	}

	cfg, err := ctx.MarketConfig()
	if err != nil {
		return err
	}
	// The oracle call must succeed before any state is mutated.
	price, err := ctx.Oracle.ExchangeRate(cfg.AssetDenom)
	if err != nil {
		return fmt.Errorf("start price for %q: %w", cfg.AssetDenom, err)
	}

	round.Started = true
	round.StartedAt = ctx.Now
	round.StartPrice = &price
	if err := ctx.State.SetRound(round); err != nil {
		return err
	}

	ctx.Emit(events.EventRoundStarted, map[string]any{
		"round": p.Name, "start_price": price.String(),
	})
	return nil
}

func handleStopRound(ctx *engine.Context, payload json.RawMessage) error {
	var p core.StopRoundPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode stop_round payload: %w", err)
	}
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}

	round, err := ctx.State.GetRound(p.Name)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrRoundDoesNotExist
	}
	if err != nil {
		return err
	}
	if round.Stopped {
		return core.ErrRoundAlreadyEnded
	}
	if ctx.Now < round.StopTime {
		return core.ErrRoundStillInProgress
	}

	cfg, err := ctx.MarketConfig()
	if err != nil {
		return err
	}
	price, err := ctx.Oracle.ExchangeRate(cfg.AssetDenom)
	if err != nil {
		return fmt.Errorf("stop price for %q: %w", cfg.AssetDenom, err)
	}

	round.Stopped = true
	round.StoppedAt = ctx.Now
	round.StopPrice = &price

	// Skim the protocol fee for each denomination staked in the round into
	// its treasury pool. The remaining share is what claim_win distributes.
	if round.FeesClaimed {
		return core.ErrFeesAlreadyClaimed
	}
	for _, denom := range round.BetDenoms {
		rdb, err := ctx.State.GetRoundDenomBet(p.Name, denom)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		share := core.MulDiv(rdb.Amount, core.FeePercent, 100)
		if share == 0 {
			continue
		}
		pool, err := ctx.State.GetTreasuryPool(denom)
		if errors.Is(err, core.ErrNotFound) {
			pool = &core.TreasuryPool{Denom: denom}
		} else if err != nil {
			return err
		}
		pool.Amount += share
		if err := ctx.State.SetTreasuryPool(pool); err != nil {
			return err
		}
	}
	round.FeesClaimed = true
	if err := ctx.State.SetRound(round); err != nil {
		return err
	}

	ctx.Emit(events.EventRoundStopped, map[string]any{
		"round": p.Name, "stop_price": price.String(),
	})
	return nil
}
