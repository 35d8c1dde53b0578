package ports

import (
	"context"
	"time"
)

// EventPublisher publishes a message to an exchange with a routing key.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// Event is one delivery from an event stream.
type Event struct {
	Topic string
	Body  []byte
}

// EventStream is a cancellable stream of events. Events is closed when the
// stream ends, either by Close or because the source went away.
type EventStream interface {
	Events() <-chan Event
	Close() error
}

// EventSource hands out subscriptions to a topic.
type EventSource interface {
	Subscribe(ctx context.Context, topic string) (EventStream, error)
}

// Clock is the injectable time source. Now returns UTC.
type Clock interface {
	Now() time.Time
}
