package services

import (
	"sync"

	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/ws"
)

// ChangeFeed is notified after every committed session write. It bumps the
// session's version (read caches compare against it), counts the write and
// fans the event out to subscribers.
//
// Versions are drawn from one feed-wide sequence, so a version observed after
// a write is always greater than any version of that session observed before
// it. Closed sessions are terminal and leave the map; their version falls back
// to floor, the sequence value at the latest close. A view cached before the
// close therefore never matches again, and the map only tracks sessions that
// can still change.
type ChangeFeed struct {
	mu       sync.RWMutex
	seq      int64
	floor    int64
	versions map[int64]int64

	publisher ws.EventPublisher
	metrics   *metrics.Metrics
}

// NewChangeFeed builds a feed. publisher may be nil when nothing subscribes
// (CLI, tests).
func NewChangeFeed(publisher ws.EventPublisher, m *metrics.Metrics) *ChangeFeed {
	return &ChangeFeed{
		versions:  make(map[int64]int64),
		publisher: publisher,
		metrics:   m,
	}
}

// Version returns the session's current write version.
func (f *ChangeFeed) Version(sessionID int64) int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if v, ok := f.versions[sessionID]; ok {
		return v
	}
	return f.floor
}

// HasSubscribers reports whether anyone listens to the session, so callers
// can skip building payloads nobody reads.
func (f *ChangeFeed) HasSubscribers(sessionID int64) bool {
	return f.publisher != nil && f.publisher.SubscriberCount(sessionID) > 0
}

// Committed records a write and publishes event if it is non-nil.
func (f *ChangeFeed) Committed(sessionID int64, metricEvent string, event *ws.Event) {
	f.bump(sessionID)
	f.metrics.Event(metricEvent)

	if f.publisher != nil && event != nil {
		f.publisher.PublishToSession(sessionID, *event)
	}
}

// Closed records a session end and disconnects its subscribers after event.
func (f *ChangeFeed) Closed(sessionID int64, event ws.Event) {
	f.mu.Lock()
	f.seq++
	f.floor = f.seq
	delete(f.versions, sessionID)
	f.mu.Unlock()
	f.metrics.Event(metrics.EventSessionEnded)

	if f.publisher != nil {
		f.publisher.CloseSession(sessionID, event)
	}
}

func (f *ChangeFeed) bump(sessionID int64) {
	f.mu.Lock()
	f.seq++
	f.versions[sessionID] = f.seq
	f.mu.Unlock()
}

// tracked returns how many sessions hold their own version.
func (f *ChangeFeed) tracked() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.versions)
}
