package hub

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event kinds pushed over the live channel.
const (
	EventReadingUpdate = "reading-update"
	EventAlertRaised   = "alert-raised"
)

// Event is one message pushed to every live subscriber.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Conn is the subset of a websocket connection the hub needs. Narrowed so
// tests can inject fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Subscriber lifecycle: Connected → Disconnecting → Removed.
const (
	stateConnected = iota
	stateDisconnecting
	stateRemoved
)

// Subscriber is one connected dashboard session. Owned exclusively by the
// hub; never persisted. Events are written by a dedicated goroutine draining
// a buffered channel, which gives FIFO delivery per subscriber and keeps a
// slow or dead connection from blocking the broadcast loop.
type Subscriber struct {
	ID   uuid.UUID
	conn Conn

	send chan Event

	mu    sync.Mutex
	state int
}

// Hub tracks the set of live subscribers and fans events out to them. It is
// a best-effort mirror of recent writes: it never buffers missed events, and
// a late-connecting client reconciles through the history endpoints instead.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscriber
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[uuid.UUID]*Subscriber),
	}
}

// sendBuffer bounds how far a subscriber may fall behind before it is
// treated as dead and removed.
const sendBuffer = 32

// Subscribe registers a live connection and starts its writer. Past events
// are not replayed.
func (h *Hub) Subscribe(conn Conn) *Subscriber {
	sub := &Subscriber{
		ID:    uuid.New(),
		conn:  conn,
		send:  make(chan Event, sendBuffer),
		state: stateConnected,
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	total := len(h.subs)
	h.mu.Unlock()

	go h.writePump(sub)

	h.logger.Info("subscriber connected",
		zap.String("id", sub.ID.String()),
		zap.Int("total", total))
	return sub
}

// Unsubscribe removes a subscriber and closes its connection. Idempotent:
// unsubscribing an already-removed handle is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	sub.mu.Lock()
	if sub.state != stateConnected {
		sub.mu.Unlock()
		return
	}
	sub.state = stateDisconnecting
	close(sub.send)
	sub.mu.Unlock()

	h.mu.Lock()
	delete(h.subs, sub.ID)
	total := len(h.subs)
	h.mu.Unlock()

	sub.conn.Close()

	sub.mu.Lock()
	sub.state = stateRemoved
	sub.mu.Unlock()

	h.logger.Info("subscriber removed",
		zap.String("id", sub.ID.String()),
		zap.Int("total", total))
}

// Broadcast queues the event for every current subscriber. It never fails:
// a subscriber that cannot keep up is dropped, and delivery to the rest
// continues. Successive broadcasts reach each surviving subscriber in call
// order.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if !sub.enqueue(event) {
			h.logger.Warn("subscriber send buffer full, dropping connection",
				zap.String("id", sub.ID.String()))
			h.Unsubscribe(sub)
		}
	}
}

// enqueue attempts a non-blocking send. Returns false when the subscriber is
// gone or its buffer is full.
func (s *Subscriber) enqueue(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateConnected {
		return true // already being torn down elsewhere, nothing to report
	}
	select {
	case s.send <- event:
		return true
	default:
		return false
	}
}

// writePump drains the subscriber's queue onto the connection. A write
// failure means the connection is gone; removal happens as a side effect and
// is never reported upstream.
func (h *Hub) writePump(sub *Subscriber) {
	for event := range sub.send {
		if err := sub.conn.WriteJSON(event); err != nil {
			h.logger.Debug("subscriber write failed",
				zap.String("id", sub.ID.String()),
				zap.Error(err))
			h.Unsubscribe(sub)
			// drain whatever broadcasts raced with the teardown
			for range sub.send {
			}
			return
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close tears down every subscriber. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		h.Unsubscribe(sub)
	}
}
