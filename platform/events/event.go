// Package events is the in-process publish/subscribe layer the autopilot uses
// to tell notification and dashboards about proposals. It holds no domain
// types; those live in internal/events.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. EventName is the subscription key,
// for example "autopilot.proposal.created".
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the publish time. Embed it in concrete events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the wall clock.
func NewBaseEvent() BaseEvent {
	return NewBaseEventAt(time.Now())
}

// NewBaseEventAt stamps an event with at, so producers running on an
// injected clock publish consistent times.
func NewBaseEventAt(at time.Time) BaseEvent {
	return BaseEvent{Timestamp: at.UTC()}
}

// Handler consumes events it subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events by name.
type Bus interface {
	// Publish hands the event to every subscriber in the background.
	// Handler errors are logged by the bus.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every subscriber before returning and reports the
	// first handler error.
	PublishSync(ctx context.Context, event Event) error

	Subscribe(eventName string, handler Handler)
}
