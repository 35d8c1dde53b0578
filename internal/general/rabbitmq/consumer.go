package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/ports"
)

const subscriptionBuffer = 64

var _ ports.EventSource = (*Client)(nil)

// newConsumerChannel returns a fresh channel with prefetch (QoS) applied.
func (client *Client) newConsumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("rabbitmq: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("rabbitmq: set QoS (prefetch=%d): %w", prefetch, err)
		}
	}

	return ch, nil
}

// Subscribe binds a private, auto-deleted queue to topic on the dispatch
// exchange and streams its deliveries. The stream ends when ctx is done,
// Close is called, or the channel goes away; in the last case the caller
// sees Events closed while its own context is still live.
func (client *Client) Subscribe(ctx context.Context, topic string) (ports.EventStream, error) {
	ch, err := client.newConsumerChannel(0)
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: declare subscription queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, topic, contracts.ExchangeDispatchTopic, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: bind %s to %s: %w", q.Name, topic, err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumerTag
		true,  // autoAck
		true,  // exclusive
		false, // noLocal (ignored by RabbitMQ)
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq: consume(%s): %w", q.Name, err)
	}

	sub := &subscription{
		ch:   ch,
		out:  make(chan ports.Event, subscriptionBuffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go sub.pump(ctx, deliveries, ch.NotifyClose(make(chan *amqp.Error, 1)))

	client.logger.Debug(ctx, "rabbitmq_subscribed", "Live subscription opened", map[string]any{
		"queue":       q.Name,
		"routing_key": topic,
	})
	return sub, nil
}

type subscription struct {
	ch   *amqp.Channel
	out  chan ports.Event
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

func (sub *subscription) Events() <-chan ports.Event { return sub.out }

func (sub *subscription) Close() error {
	sub.once.Do(func() { close(sub.quit) })
	<-sub.done
	return nil
}

func (sub *subscription) pump(ctx context.Context, deliveries <-chan amqp.Delivery, chClosed <-chan *amqp.Error) {
	defer close(sub.done)
	defer close(sub.out)
	defer sub.ch.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.quit:
			return
		case <-chClosed:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case sub.out <- ports.Event{Topic: d.RoutingKey, Body: d.Body}:
			case <-ctx.Done():
				return
			case <-sub.quit:
				return
			}
		}
	}
}
