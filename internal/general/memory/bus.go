package memory

import (
	"context"
	"errors"
	"sync"

	"ride-dispatch/internal/ports"
)

// Published is one recorded publish call.
type Published struct {
	Exchange   string
	RoutingKey string
	Body       []byte
}

// Bus is an in-process publisher and event source. Subscriptions match the
// routing key exactly.
type Bus struct {
	mu        sync.Mutex
	subs      map[string]map[*stream]struct{}
	published []Published
	closed    bool
	buffer    int
}

var (
	_ ports.EventPublisher = (*Bus)(nil)
	_ ports.EventSource    = (*Bus)(nil)
)

var ErrBusClosed = errors.New("memory bus closed")

func NewBus() *Bus {
	return &Bus{subs: map[string]map[*stream]struct{}{}, buffer: 64}
}

// Publish records the message and fans it out. A subscriber whose buffer is
// full misses the event, which is how real brokers drop under pressure.
func (b *Bus) Publish(exchange, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	cp := append([]byte(nil), body...)
	b.published = append(b.published, Published{Exchange: exchange, RoutingKey: routingKey, Body: cp})

	for st := range b.subs[routingKey] {
		select {
		case st.ch <- ports.Event{Topic: routingKey, Body: cp}:
		default:
		}
	}
	return nil
}

// PublishedTo returns recorded publishes whose routing key equals key.
func (b *Bus) PublishedTo(key string) []Published {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Published
	for _, p := range b.published {
		if p.RoutingKey == key {
			out = append(out, p)
		}
	}
	return out
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (ports.EventStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	st := &stream{bus: b, topic: topic, ch: make(chan ports.Event, b.buffer), quit: make(chan struct{})}
	if b.subs[topic] == nil {
		b.subs[topic] = map[*stream]struct{}{}
	}
	b.subs[topic][st] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			_ = st.Close()
		case <-st.quit:
		}
	}()
	return st, nil
}

// Drop ends every subscription to topic as if the connection was lost.
func (b *Bus) Drop(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for st := range b.subs[topic] {
		b.detachLocked(st)
	}
}

// Subscribers reports how many live subscriptions topic has.
func (b *Bus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, set := range b.subs {
		for st := range set {
			b.detachLocked(st)
		}
	}
}

func (b *Bus) detachLocked(st *stream) {
	if st.done {
		return
	}
	st.done = true
	delete(b.subs[st.topic], st)
	close(st.ch)
	close(st.quit)
}

type stream struct {
	bus   *Bus
	topic string
	ch    chan ports.Event
	quit  chan struct{}
	done  bool // guarded by bus.mu
}

func (s *stream) Events() <-chan ports.Event { return s.ch }

func (s *stream) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.bus.detachLocked(s)
	return nil
}
