// Package events carries domain events between modules without coupling
// publishers to subscribers. Event definitions live with the modules that
// emit them; this package only supplies the contract and the bus.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event. EventName doubles as the
// subscription key on the Bus.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent supplies the timestamp half of the Event contract; embed it and
// add EventName on the concrete type.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of a single name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes published events to the handlers subscribed under the event's
// name. Publish dispatches asynchronously and never blocks on subscribers;
// PublishSync waits for every handler and reports their joined errors.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
