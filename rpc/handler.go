package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/engine"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	state core.State
	exec  *engine.Executor
}

// NewHandler creates an RPC Handler.
func NewHandler(state core.State, exec *engine.Executor) *Handler {
	return &Handler{state: state, exec: exec}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getRounds":
		return h.getRounds(req)

	case "getRound":
		return h.getRound(req)

	case "getUserBet":
		return h.getUserBet(req)

	case "getTreasuryPool":
		return h.getTreasuryPool(req)

	case "getTreasuryPools":
		return h.getTreasuryPools(req)

	case "getMarketConfig":
		return h.getMarketConfig(req)

	case "getLedgerChecksum":
		return okResponse(req.ID, map[string]any{"checksum": h.state.Checksum()})

	case "sendAction":
		return h.sendAction(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) getRounds(req Request) Response {
	rounds, err := h.state.ListRounds()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"rounds": rounds})
}

func (h *Handler) getRound(req Request) Response {
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Name == "" {
		return errResponse(req.ID, CodeInvalidParams, "name is required")
	}
	round, err := h.state.GetRound(params.Name)
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(req.ID, CodeActionFailed, core.ErrRoundDoesNotExist.Error())
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, round)
}

func (h *Handler) getUserBet(req Request) Response {
	var params struct {
		RoundName string `json:"round_name"`
		User      string `json:"user"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.RoundName == "" || params.User == "" {
		return errResponse(req.ID, CodeInvalidParams, "round_name and user are required")
	}
	bet, err := h.state.GetBet(params.RoundName, params.User)
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(req.ID, CodeActionFailed, core.ErrBetNotFound.Error())
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, bet)
}

func (h *Handler) getTreasuryPool(req Request) Response {
	var params struct {
		Denom string `json:"denom"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Denom == "" {
		return errResponse(req.ID, CodeInvalidParams, "denom is required")
	}
	pool, err := h.state.GetTreasuryPool(params.Denom)
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(req.ID, CodeActionFailed, core.ErrTreasuryDenomDoesNotExist.Error())
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, pool)
}

func (h *Handler) getTreasuryPools(req Request) Response {
	pools, err := h.state.ListTreasuryPools()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"treasury_pools": pools})
}

func (h *Handler) getMarketConfig(req Request) Response {
	cfg, err := h.state.GetMarketConfig()
	if errors.Is(err, core.ErrNotFound) {
		return errResponse(req.ID, CodeInternalError, "market config not initialised")
	}
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, cfg)
}

func (h *Handler) sendAction(req Request) Response {
	var action core.Action
	if err := json.Unmarshal(req.Params, &action); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if action.Type == "" {
		return errResponse(req.ID, CodeInvalidParams, "type is required")
	}
	if action.Caller == "" {
		return errResponse(req.ID, CodeInvalidParams, "caller is required")
	}

	orders, err := h.exec.Execute(&action, time.Now().Unix())
	if err != nil {
		return errResponse(req.ID, CodeActionFailed, err.Error())
	}
	return okResponse(req.ID, map[string]any{"payment_orders": orders})
}
