package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg/logger"
)

// DefaultPollInterval matches the facilitator screen's cadence.
const DefaultPollInterval = 5 * time.Second

// Snapshot is the facilitator's last known view of a session.
type Snapshot struct {
	Detail       *models.SessionDetail
	Participants []models.Participant
	FetchedAt    time.Time
	Stale        bool // last poll failed; the fields hold the previous result
}

// FacilitatorWatcher polls session detail and participants on a fixed timer,
// whether or not anything changed. Transient failures keep the previous
// snapshot. Polling stops once the session is seen Closed.
type FacilitatorWatcher struct {
	client    *Client
	sessionID int64
	interval  time.Duration
	log       *slog.Logger

	// OnUpdate receives every snapshot, stale ones included.
	OnUpdate func(Snapshot)
	// OnClosed fires once, with the session as first seen Closed.
	OnClosed func(models.Session)

	mu         sync.Mutex
	last       Snapshot
	hasLast    bool
	closedSeen bool
}

// NewFacilitatorWatcher builds a watcher. interval <= 0 uses
// DefaultPollInterval.
func NewFacilitatorWatcher(c *Client, sessionID int64, interval time.Duration, log *slog.Logger) *FacilitatorWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &FacilitatorWatcher{
		client:    c,
		sessionID: sessionID,
		interval:  interval,
		log:       logger.For(log, "watcher").With("session_id", sessionID),
	}
}

// Run polls immediately and then every interval until ctx ends, the session
// closes, or a poll fails with a non-transient error (e.g. unknown session).
// It returns nil when the session closed.
func (w *FacilitatorWatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil {
			if !IsTransient(err) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			w.log.Warn("poll failed, keeping previous state", "error", err)
		}
		if w.Closed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one cycle: detail, then participants. The two reads are not a
// consistent pair; the session may close between them.
func (w *FacilitatorWatcher) Poll(ctx context.Context) (Snapshot, error) {
	detail, err := w.client.SessionDetail(ctx, w.sessionID)
	if err == nil {
		var participants []models.Participant
		participants, err = w.client.Participants(ctx, w.sessionID)
		if err == nil {
			snap := Snapshot{Detail: detail, Participants: participants, FetchedAt: time.Now()}
			w.store(snap)
			return snap, nil
		}
	}

	w.mu.Lock()
	snap := w.last
	snap.Stale = true
	w.mu.Unlock()

	if w.OnUpdate != nil && w.hasSnapshot() {
		w.OnUpdate(snap)
	}
	return snap, err
}

func (w *FacilitatorWatcher) store(snap Snapshot) {
	w.mu.Lock()
	w.last = snap
	w.hasLast = true
	fireClosed := !snap.Detail.Session.IsActive() && !w.closedSeen
	if fireClosed {
		w.closedSeen = true
	}
	w.mu.Unlock()

	if w.OnUpdate != nil {
		w.OnUpdate(snap)
	}
	if fireClosed {
		w.log.Info("session closed")
		if w.OnClosed != nil {
			w.OnClosed(snap.Detail.Session)
		}
	}
}

func (w *FacilitatorWatcher) hasSnapshot() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasLast
}

// Latest returns the last successful snapshot, if any.
func (w *FacilitatorWatcher) Latest() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.hasLast
}

// Closed reports whether a poll has seen the session Closed.
func (w *FacilitatorWatcher) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closedSeen
}
