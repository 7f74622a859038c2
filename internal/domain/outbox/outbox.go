package outbox

import "context"

// Event is any domain event carrying a stable name identifier.
type Event interface {
	EventName() string
}

// Handler processes one delivered event. Handlers must be read-only with
// respect to the core aggregates; redeliveries may invoke them more than
// once for the same logical event.
type Handler func(ctx context.Context, e Event) error

// Publisher delivers events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names before the bus starts.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
