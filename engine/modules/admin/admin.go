// Package admin mutates the singleton market configuration: the admin set,
// the reference asset, the accepted bet denominations, and the treasury
// address. Every action here is admin-gated.
package admin

import (
	"encoding/json"
	"fmt"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/engine"
	"github.com/openpredict/updown/events"
)

func init() {
	engine.Register(core.ActionUpdateAdmins, handleUpdateAdmins)
	engine.Register(core.ActionUpdateAssetDenom, handleUpdateAssetDenom)
	engine.Register(core.ActionUpdateAcceptedBetDenoms, handleUpdateAcceptedBetDenoms)
	engine.Register(core.ActionUpdateTreasuryAddr, handleUpdateTreasuryAddr)
}

func handleUpdateAdmins(ctx *engine.Context, payload json.RawMessage) error {
	var p core.UpdateAdminsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode update_admins payload: %w", err)
	}
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	// An empty admin set would lock every privileged action out forever.
	if len(p.Admins) == 0 {
		return fmt.Errorf("admin set must not be empty")
	}
	cfg, err := ctx.MarketConfig()
	if err != nil {
		return err
	}
	cfg.Admins = p.Admins
	if err := ctx.State.SetMarketConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventConfigUpdated, map[string]any{"field": "admins", "admins": p.Admins})
	return nil
}

func handleUpdateAssetDenom(ctx *engine.Context, payload json.RawMessage) error {
	var p core.UpdateAssetDenomPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode update_asset_denom payload: %w", err)
	}
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	if p.AssetDenom == "" {
		return fmt.Errorf("asset denom required")
	}
	cfg, err := ctx.MarketConfig()
	if err != nil {
		return err
	}
	cfg.AssetDenom = p.AssetDenom
	if err := ctx.State.SetMarketConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventConfigUpdated, map[string]any{"field": "asset_denom", "asset_denom": p.AssetDenom})
	return nil
}

func handleUpdateAcceptedBetDenoms(ctx *engine.Context, payload json.RawMessage) error {
	var p core.UpdateAcceptedBetDenomsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode update_accepted_bet_denoms payload: %w", err)
	}
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	if len(p.AcceptedBetDenoms) == 0 {
		return fmt.Errorf("accepted bet denoms must not be empty")
	}
	cfg, err := ctx.MarketConfig()
	if err != nil {
		return err
	}
	cfg.AcceptedBetDenoms = p.AcceptedBetDenoms
	if err := ctx.State.SetMarketConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventConfigUpdated, map[string]any{"field": "accepted_bet_denoms", "denoms": p.AcceptedBetDenoms})
	return nil
}

func handleUpdateTreasuryAddr(ctx *engine.Context, payload json.RawMessage) error {
	var p core.UpdateTreasuryAddrPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode update_treasury_addr payload: %w", err)
	}
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	if p.NewAddress == "" {
		return fmt.Errorf("treasury address required")
	}
	cfg, err := ctx.MarketConfig()
	if err != nil {
		return err
	}
	cfg.TreasuryAddr = p.NewAddress
	if err := ctx.State.SetMarketConfig(cfg); err != nil {
		return err
	}
	ctx.Emit(events.EventConfigUpdated, map[string]any{"field": "treasury_addr", "treasury_addr": p.NewAddress})
	return nil
}
