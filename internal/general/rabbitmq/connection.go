package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"ride-dispatch/internal/general/config"
	"ride-dispatch/internal/general/contracts"
	"ride-dispatch/internal/general/logger"
)

const (
	defaultHeartbeat  = 10 * time.Second
	defaultMaxBackoff = 30 * time.Second
	dialTimeout       = 30 * time.Second
)

// Client owns the broker connection for dispatch-service. It keeps one
// confirm-mode channel for status and conversation events and opens a
// channel per live subscription. A lost connection is redialled in the
// background; subscriptions on the old connection end and their watchers
// tell clients to resync.
type Client struct {
	url        string
	heartbeat  time.Duration
	maxBackoff time.Duration

	logger *logger.Logger
	logCtx context.Context

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// BrokerURL builds the AMQP URI from config. amqp.URI escapes credentials.
func BrokerURL(cfg config.RabbitMQConfig) string {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		Password: cfg.Password,
		Vhost:    vhost,
	}.String()
}

func newClient(cfg config.RabbitMQConfig, logger *logger.Logger, logCtx context.Context) *Client {
	client := &Client{
		url:        BrokerURL(cfg),
		heartbeat:  cfg.Heartbeat,
		maxBackoff: cfg.ReconnectMaxBackoff,
		logger:     logger,
		logCtx:     logCtx,
		closed:     make(chan struct{}),
		reconnect:  make(chan struct{}, 1),
	}
	if client.heartbeat <= 0 {
		client.heartbeat = defaultHeartbeat
	}
	if client.maxBackoff <= 0 {
		client.maxBackoff = defaultMaxBackoff
	}
	return client
}

// ConnectRabbitMQ dials once, declares the dispatch topology and starts the
// reconnect loop. Later failures are retried in the background.
func ConnectRabbitMQ(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Client, error) {
	client := newClient(cfg.RabbitMQ, logger, context.WithoutCancel(ctx))

	if err := client.dial(); err != nil {
		return nil, err
	}
	go client.redialLoop()

	return client, nil
}

// Close stops the reconnect loop and releases the connection. Safe to call twice.
func (client *Client) Close() {
	client.closeOnce.Do(func() { close(client.closed) })

	client.mu.Lock()
	if client.pubChan != nil {
		_ = client.pubChan.Close()
		client.pubChan = nil
	}
	if client.conn != nil {
		_ = client.conn.Close()
		client.conn = nil
	}
	client.mu.Unlock()

	// wake publishers waiting on a confirm
	client.pubMu.Lock()
	if client.pubConfirms != nil {
		close(client.pubConfirms)
		client.pubConfirms = nil
	}
	client.pubMu.Unlock()
}

// Connected reports whether the publishing side is usable right now.
func (client *Client) Connected() bool {
	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.conn != nil && !client.conn.IsClosed() && client.pubChan != nil && !client.pubChan.IsClosed()
}

func (client *Client) dial() (err error) {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: client.heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
		Properties: amqp.Table{
			"connection_name": "dispatch-service",
		},
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := client.openPublisher(conn)
	if err != nil {
		return err
	}

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	go client.awaitClose(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", map[string]any{
		"exchange": contracts.ExchangeDispatchTopic,
	})
	return nil
}

// openPublisher declares topology on a fresh channel and switches it to
// confirm mode. Status events are published mandatory, so returns are logged.
func (client *Client) openPublisher(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_open_channel_failed", "Failed to open RabbitMQ channel", err, nil)
		return nil, fmt.Errorf("rabbitmq: failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		client.logger.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare dispatch topology", err, nil)
		return nil, fmt.Errorf("rabbitmq: failed to declare topology: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		client.logger.Error(client.logCtx, "rabbitmq_enable_confirms_failed", "Failed to enable publisher confirms", err, nil)
		return nil, fmt.Errorf("rabbitmq: failed to enable confirms: %w", err)
	}

	client.pubMu.Lock()
	old := client.pubConfirms
	client.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	client.pubMu.Unlock()
	if old != nil {
		close(old)
	}

	go client.logReturns(ch.NotifyReturn(make(chan amqp.Return, 1)))
	return ch, nil
}

// logReturns reports status events nobody was bound to receive.
func (client *Client) logReturns(returns <-chan amqp.Return) {
	for r := range returns {
		client.logger.Error(client.logCtx, "rabbitmq_returned", "Status event was unroutable",
			fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
			map[string]any{
				"exchange":    r.Exchange,
				"routing_key": r.RoutingKey,
				"size":        len(r.Body),
			},
		)
	}
}

// awaitClose signals the reconnect loop once conn or its publishing channel dies.
func (client *Client) awaitClose(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	var reason *amqp.Error
	select {
	case <-client.closed:
		return
	case reason = <-connClosed:
	case reason = <-chClosed:
	}

	client.logger.Info(client.logCtx, "rabbitmq_connection_lost", "RabbitMQ connection lost, live watches will resync", map[string]any{
		"reason": fmt.Sprint(reason),
	})

	select {
	case client.reconnect <- struct{}{}:
	default:
	}
}

func (client *Client) redialLoop() {
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
		}

		backoff := time.Second
		for {
			err := client.dial()
			if err == nil {
				break
			}
			client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err, map[string]any{
				"retry_in": backoff.String(),
			})

			timer := time.NewTimer(backoff)
			select {
			case <-client.closed:
				timer.Stop()
				return
			case <-timer.C:
			}
			backoff = nextBackoff(backoff, client.maxBackoff)
		}

		client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ and re-declared topology", nil)
	}
}

// nextBackoff doubles cur up to limit.
func nextBackoff(cur, limit time.Duration) time.Duration {
	return min(cur*2, limit)
}
