// Package events is the in-process publish/subscribe bus used to decouple
// the CRM modules. Event types themselves live in internal/events.
package events

import (
	"context"
	"time"
)

// Event is anything that can travel on the bus. Subscriptions are keyed on
// EventName, so two event types must never share a name.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events to carry the emission time.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps an event with the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe to the bus.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus delivers events to the handlers subscribed under their name.
//
// Publish is fire-and-forget: handlers run in the background and their
// errors are only logged. PublishSync runs handlers on the caller's
// goroutine and reports their combined error.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
