// Package bus is a small in-process pub/sub used to hand readings from the
// sensor task to the indicator controller and the telemetry writer.
//
// Topics are slash-free token lists. Subscriptions may use "+" to match one
// token and a trailing "#" to match the rest (including nothing). The last
// retained message per topic is replayed to new subscribers. Delivery never
// blocks the publisher: a full subscriber queue drops its oldest message.
package bus

import "sync"

// Topic is a sequence of tokens, e.g. Topic{"env", "reading"}.
type Topic []string

const (
	Single = "+"
	Multi  = "#"
)

func (t Topic) String() string {
	n := 0
	for _, s := range t {
		n += len(s) + 1
	}
	b := make([]byte, 0, n)
	for i, s := range t {
		if i > 0 {
			b = append(b, '/')
		}
		b = append(b, s...)
	}
	return string(b)
}

// Matches reports whether the concrete topic t is covered by filter f.
func (f Topic) Matches(t Topic) bool {
	for i, tok := range f {
		if tok == Multi {
			return i == len(f)-1
		}
		if i >= len(t) {
			return false
		}
		if tok != Single && tok != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}

// Message is one published value.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// Subscription is a buffered stream of messages matching a filter.
type Subscription struct {
	filter Topic
	ch     chan *Message
	conn   *Connection
	closed bool
}

func (s *Subscription) Topic() Topic             { return s.filter }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// offer delivers m, evicting the oldest queued message when full.
// Caller holds the bus lock.
func (s *Subscription) offer(m *Message) {
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Bus routes messages between connections.
type Bus struct {
	mu       sync.Mutex
	subs     []*Subscription
	retained map[string]*Message
	qLen     int
}

// NewBus creates a bus whose subscriptions buffer queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{retained: map[string]*Message{}, qLen: queueLen}
}

// NewMessage builds a message for Publish.
func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to matching subscribers. A retained message with a nil
// payload clears the retained value for its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
			return
		}
		b.retained[key] = msg
	}
	for _, s := range b.subs {
		if s.filter.Matches(msg.Topic) {
			s.offer(msg)
		}
	}
}

func (b *Bus) subscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
	for _, m := range b.retained {
		if s.filter.Matches(m.Topic) {
			s.offer(m)
		}
	}
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.subs {
		if x == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Retained returns the retained message for topic t, if any.
func (b *Bus) Retained(t Topic) (*Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.retained[t.String()]
	return m, ok
}

// Connection groups the subscriptions of one task.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// NewMessage builds a message on the connection's bus.
func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

// Subscribe registers filter and replays matching retained messages.
func (c *Connection) Subscribe(filter Topic) *Subscription {
	s := &Subscription{
		filter: append(Topic(nil), filter...),
		ch:     make(chan *Message, c.bus.qLen),
		conn:   c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	c.bus.subscribe(s)
	return s
}

// Unsubscribe removes s and closes its channel.
func (c *Connection) Unsubscribe(s *Subscription) {
	c.mu.Lock()
	for i, x := range c.subs {
		if x == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.bus.unsubscribe(s)
}

// Disconnect closes every subscription held by c.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, s := range subs {
		c.bus.unsubscribe(s)
	}
}
