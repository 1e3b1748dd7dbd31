package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType labels what happened.
type EventType string

const (
	EventRoundCreated     EventType = "round_created"
	EventRoundStarted     EventType = "round_started"
	EventRoundStopped     EventType = "round_stopped"
	EventBetPlaced        EventType = "bet_placed"
	EventBetWithdrawn     EventType = "bet_withdrawn"
	EventWinClaimed       EventType = "win_claimed"
	EventTreasuryWithdraw EventType = "treasury_withdrawn"
	EventConfigUpdated    EventType = "config_updated"
	EventPaymentOrder     EventType = "payment_order"
)

// Event carries a typed payload emitted after a state change.
type Event struct {
	Type   EventType      `json:"type"`
	Caller string         `json:"caller"`
	Data   map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the daemon or abort an action mid-commit.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("event", string(ev.Type)).Any("panic", r).Msg("event handler panicked")
				}
			}()
			h(ev)
		}()
	}
}
