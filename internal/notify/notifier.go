package notify

import (
	"context"
	"time"
)

// Event types emitted by the session controllers.
const (
	EventSessionCreated       = "session.created"
	EventMessageAppended      = "message.appended"
	EventGroupCreated         = "group.created"
	EventGroupMessageAppended = "group.message.appended"
)

// Event is a one-way notification about a session state change. The core
// only emits; delivery to users is someone else's problem.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier is the side-channel the controllers emit events into. Emit is
// best-effort: implementations log failures instead of propagating them, so
// a broken sink can never fail a conversation turn.
type Notifier interface {
	Emit(ctx context.Context, event Event)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Emit(ctx context.Context, event Event) {}

// Fanout forwards each event to every wrapped notifier in order.
type Fanout []Notifier

func (f Fanout) Emit(ctx context.Context, event Event) {
	for _, n := range f {
		n.Emit(ctx, event)
	}
}
