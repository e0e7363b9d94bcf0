package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const defaultListenerBuffer = 16

// Event is one published notification.
type Event struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Listener receives events published after it subscribed.
type Listener struct {
	id     string
	events chan Event
	once   sync.Once
}

func (l *Listener) ID() string {
	return l.id
}

// Events is closed once the listener is unsubscribed.
func (l *Listener) Events() <-chan Event {
	return l.events
}

func (l *Listener) close() {
	l.once.Do(func() { close(l.events) })
}

// Relay fans events out to the listeners registered at publish time.
// Delivery is best effort: a listener whose buffer is full misses the event.
type Relay struct {
	mu        sync.Mutex
	listeners []*Listener
	buffer    int
	seq       atomic.Uint64
	dropped   atomic.Uint64
}

func New() *Relay {
	return NewWithBuffer(defaultListenerBuffer)
}

func NewWithBuffer(buffer int) *Relay {
	if buffer < 1 {
		buffer = 1
	}
	return &Relay{buffer: buffer}
}

func (r *Relay) Subscribe() *Listener {
	l := &Listener{id: uuid.NewString(), events: make(chan Event, r.buffer)}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
	return l
}

// Unsubscribe is a no-op for listeners that are already gone.
func (r *Relay) Unsubscribe(l *Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.listeners {
		if cur == l {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			break
		}
	}
	l.close()
}

// Publish delivers payload to every current listener in registration order.
func (r *Relay) Publish(topic string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	evt := Event{
		ID:      fmt.Sprintf("evt_%d", r.seq.Add(1)),
		Topic:   topic,
		Payload: raw,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.listeners {
		select {
		case l.events <- evt:
		default:
			r.dropped.Add(1)
		}
	}
	return evt, nil
}

func (r *Relay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Dropped counts deliveries skipped because a listener was not keeping up.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}
