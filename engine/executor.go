package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/events"
	"github.com/openpredict/updown/oracle"
)

// Context is passed to every Handler and provides access to the ledger state,
// the caller identity, the attached funds, the caller-supplied current time,
// the price oracle, and the event emitter. Handlers queue payment orders via
// Pay; the executor returns them to the host only when the action commits.
type Context struct {
	State   core.State
	Caller  string
	Funds   []core.Coin
	Now     int64
	Oracle  oracle.Oracle
	Emitter *events.Emitter

	orders []core.PaymentOrder
}

// Pay queues a payment order for recipient. Orders are instructions to the
// host environment; the ledger never moves funds itself.
func (c *Context) Pay(recipient string, coins []core.Coin) {
	order := core.PaymentOrder{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Coins:     coins,
	}
	c.orders = append(c.orders, order)
	if c.Emitter != nil {
		c.Emitter.Emit(events.Event{
			Type:   events.EventPaymentOrder,
			Caller: c.Caller,
			Data:   map[string]any{"order_id": order.ID, "recipient": recipient, "coins": coins},
		})
	}
}

// Emit sends an event if an emitter is configured.
func (c *Context) Emit(typ events.EventType, data map[string]any) {
	if c.Emitter != nil {
		c.Emitter.Emit(events.Event{Type: typ, Caller: c.Caller, Data: data})
	}
}

// MarketConfig loads the singleton market configuration.
func (c *Context) MarketConfig() (*core.MarketConfig, error) {
	cfg, err := c.State.GetMarketConfig()
	if errors.Is(err, core.ErrNotFound) {
		return nil, errors.New("market config not initialised")
	}
	return cfg, err
}

// RequireAdmin returns ErrUnauthorized unless the caller is a market admin.
func (c *Context) RequireAdmin() error {
	cfg, err := c.MarketConfig()
	if err != nil {
		return err
	}
	if !cfg.IsAdmin(c.Caller) {
		return core.ErrUnauthorized
	}
	return nil
}

// Executor applies actions to the ledger using the global Handler registry.
// Actions are serialized: one executes at a time, snapshot/rollback makes
// each one atomic, and a successful action is committed before the next runs.
type Executor struct {
	mu      sync.Mutex
	state   core.State
	oracle  oracle.Oracle
	emitter *events.Emitter
}

// New creates an Executor over state with the given oracle and emitter.
func New(state core.State, orc oracle.Oracle, emitter *events.Emitter) *Executor {
	return &Executor{state: state, oracle: orc, emitter: emitter}
}

// Execute runs a single action atomically at the supplied current time and
// returns the payment orders it produced. On any handler error the write
// buffer reverts to its pre-action snapshot and no orders are returned.
func (e *Executor) Execute(action *core.Action, now int64) ([]core.PaymentOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if action.Caller == "" {
		return nil, errors.New("action caller required")
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	ctx := &Context{
		State:   e.state,
		Caller:  action.Caller,
		Funds:   action.Funds,
		Now:     now,
		Oracle:  e.oracle,
		Emitter: e.emitter,
	}

	if err := globalRegistry.Execute(action.Type, ctx, action.Payload); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return nil, fmt.Errorf("revert snapshot after action failure: %w (revert: %v)", err, revertErr)
		}
		log.Debug().Str("action", string(action.Type)).Str("caller", action.Caller).Err(err).Msg("action rejected")
		return nil, err
	}

	if err := e.state.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().
		Str("action", string(action.Type)).
		Str("caller", action.Caller).
		Int("orders", len(ctx.orders)).
		Msg("action executed")
	return ctx.orders, nil
}
