package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/akinalp/emocircle/pkg/logger"
	"github.com/akinalp/emocircle/pkg/metrics"
)

// EventPublisher is what services use to fan out committed writes.
//
// Services depend on this interface rather than on *Hub: tests pass a
// recording fake, and the CLI passes nil when nothing subscribes.
type EventPublisher interface {
	// PublishToSession sends event to every subscriber of the session.
	PublishToSession(sessionID int64, event Event)
	// CloseSession sends a final event and disconnects the session's
	// subscribers.
	CloseSession(sessionID int64, event Event)
	// SubscriberCount lets callers skip building payloads nobody reads.
	SubscriberCount(sessionID int64) int
}

// Snapshot loads the current view of a session for a new subscriber.
// closed reports that the session has ended; the subscriber then gets the
// snapshot followed by session_end and is disconnected.
type Snapshot func(ctx context.Context) (view any, closed bool, err error)

// topic holds one session's subscribers. mu orders snapshot delivery against
// publishes: an event is either in the snapshot or delivered after it.
//
// Each topic has its own lock, so a slow snapshot load for one session never
// delays publishes to another.
type topic struct {
	mu sync.Mutex

	// clients is a set; Go has no set type, so the bool is always true.
	clients map[*Client]bool

	// seq numbers every frame sent on this topic, ready included, so a client
	// can tell a missed frame from a quiet session.
	seq int64

	dead bool // removed from the hub; callers must look the topic up again
}

// Hub tracks topics. mu guards the topics map; each topic guards its members.
// Lock order is Hub.mu then topic.mu.
//
// Lifecycle of a subscription:
//  1. Handler upgrades the connection and calls Subscribe.
//  2. Subscribe queues ready (and session_end for a closed session).
//  3. PublishToSession queues every later event in seq order.
//  4. The client's read pump exits on disconnect and sends the client on
//     unregister; Run removes it and drops the topic once it is empty.
//  5. CloseSession queues session_end and closes every subscriber.
//
// Writes to a connection only happen on the client's write pump; the hub
// only enqueues. A client whose buffer is full is disconnected instead of
// blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	topics map[int64]*topic

	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHub builds a hub. Run must be started for disconnects to be processed.
//
//	hub := ws.NewHub(log, m)
//	go hub.Run(ctx)
func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		topics:     make(map[int64]*topic),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger.For(log, "ws"),
		metrics:    m,
	}
}

// Run processes disconnects until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Subscribe adds client to its session topic and queues the snapshot as the
// client's first frame.
//
// The snapshot is loaded while the topic lock is held, so no publish can
// slip in between the view and the client joining the set. If the topic was
// dropped by a concurrent disconnect (dead), the loop fetches a new one.
func (h *Hub) Subscribe(ctx context.Context, client *Client, snapshot Snapshot) error {
	for {
		t := h.topicFor(client.sessionID, true)

		t.mu.Lock()
		if t.dead {
			t.mu.Unlock()
			continue
		}

		view, closed, err := snapshot(ctx)
		if err != nil {
			t.mu.Unlock()
			h.dropIfEmpty(client.sessionID, t)
			return err
		}

		t.seq++
		client.enqueue(Event{Op: OpReady, Data: view, Seq: t.seq})

		if closed {
			t.seq++
			client.enqueue(Event{Op: OpSessionEnd, Data: view, Seq: t.seq})
			client.closeSend()
			empty := len(t.clients) == 0
			t.mu.Unlock()
			if empty {
				h.dropIfEmpty(client.sessionID, t)
			}
			return nil
		}

		t.clients[client] = true
		count := len(t.clients)
		t.mu.Unlock()

		h.metrics.SubscriberAdded()
		h.log.Debug("subscriber connected", "session_id", client.sessionID, "client_id", client.id, "subscribers", count)
		return nil
	}
}

// PublishToSession implements EventPublisher.
func (h *Hub) PublishToSession(sessionID int64, event Event) {
	t := h.topicFor(sessionID, false)
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dead {
		return
	}

	t.seq++
	event.Seq = t.seq
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event", "op", event.Op, "error", err)
		return
	}

	for client := range t.clients {
		if !client.trySend(data) {
			// Slow consumer: drop it rather than block the writer.
			h.log.Warn("send buffer full, dropping subscriber", "session_id", sessionID, "client_id", client.id)
			delete(t.clients, client)
			client.closeSend()
			h.metrics.SubscriberRemoved()
		}
	}
}

// CloseSession implements EventPublisher.
func (h *Hub) CloseSession(sessionID int64, event Event) {
	h.mu.Lock()
	t, ok := h.topics[sessionID]
	if ok {
		delete(h.topics, sessionID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.dead = true
	t.seq++
	event.Seq = t.seq
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event", "op", event.Op, "error", err)
	}

	for client := range t.clients {
		if data != nil {
			client.trySend(data)
		}
		client.closeSend()
		h.metrics.SubscriberRemoved()
	}
	h.log.Info("session topic closed", "session_id", sessionID, "subscribers", len(t.clients))
	t.clients = nil
}

// SubscriberCount implements EventPublisher.
func (h *Hub) SubscriberCount(sessionID int64) int {
	t := h.topicFor(sessionID, false)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

func (h *Hub) topicFor(sessionID int64, create bool) *topic {
	h.mu.RLock()
	t, ok := h.topics[sessionID]
	h.mu.RUnlock()
	if ok || !create {
		return t
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.topics[sessionID]; ok {
		return t
	}
	t = &topic{clients: make(map[*Client]bool)}
	h.topics[sessionID] = t
	return t
}

// removeClient handles a disconnect reported by ReadPump.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.topics[client.sessionID]
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.clients[client]; !exists {
		return
	}
	delete(t.clients, client)
	client.closeSend()
	h.metrics.SubscriberRemoved()

	if len(t.clients) == 0 {
		t.dead = true
		delete(h.topics, client.sessionID)
	}
	h.log.Debug("subscriber disconnected", "session_id", client.sessionID, "client_id", client.id, "remaining", len(t.clients))
}

func (h *Hub) dropIfEmpty(sessionID int64, t *topic) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dead && len(t.clients) == 0 && h.topics[sessionID] == t {
		t.dead = true
		delete(h.topics, sessionID)
	}
}

// disconnect hands client to the Run loop, or gives up once the hub stopped.
func (h *Hub) disconnect(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, t := range h.topics {
		t.mu.Lock()
		for client := range t.clients {
			client.closeSend()
			h.metrics.SubscriberRemoved()
		}
		t.clients = nil
		t.dead = true
		t.mu.Unlock()
	}
	h.topics = make(map[int64]*topic)
	h.log.Info("hub shut down, all connections closed")
}
