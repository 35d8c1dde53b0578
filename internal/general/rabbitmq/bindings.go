package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"ride-dispatch/internal/general/contracts"
)

// declareTopology declares the dispatch exchange and the durable status feeds
// downstream consumers read. Conversation traffic has no durable queue; live
// watchers bind private queues through Subscribe.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(contracts.ExchangeDispatchTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeDispatchTopic, err)
	}

	bindings := []struct {
		queue      string
		routingKey string
	}{
		{contracts.QueueBookingStatus, contracts.RouteBookingStatusPrefix + "*"},
		{contracts.QueueShiftStatus, contracts.RouteShiftStatusPrefix + "*"},
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.routingKey, contracts.ExchangeDispatchTopic, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, contracts.ExchangeDispatchTopic, err)
		}
	}

	return nil
}
