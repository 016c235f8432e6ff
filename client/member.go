package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
)

// ErrSessionClosed is returned by MemberSession writes once the session has
// been seen Closed. It wraps pkg.ErrInvalidState.
var ErrSessionClosed = fmt.Errorf("%w: session is closed", pkg.ErrInvalidState)

// MemberSession is one member's view of a joined session. Every local write is
// followed by a refetch of the session view; writes are refused locally once
// the session is known to be Closed.
type MemberSession struct {
	client      *Client
	sessionID   int64
	participant models.Participant

	mu     sync.Mutex
	view   *models.SessionDetail
	closed bool
}

// JoinSession joins by code and loads the initial view.
func JoinSession(ctx context.Context, c *Client, code, name string) (*MemberSession, error) {
	res, err := c.Join(ctx, code, name)
	if err != nil {
		return nil, err
	}

	m := &MemberSession{
		client:      c,
		sessionID:   res.SessionID,
		participant: res.Participant,
	}
	if _, err := m.Refresh(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemberSession) SessionID() int64 { return m.sessionID }

func (m *MemberSession) Participant() models.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participant
}

// View returns the last fetched session view.
func (m *MemberSession) View() *models.SessionDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Closed reports whether the session has been seen Closed.
func (m *MemberSession) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Refresh refetches the session view.
func (m *MemberSession) Refresh(ctx context.Context) (*models.SessionDetail, error) {
	detail, err := m.client.SessionDetail(ctx, m.sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.view = detail
	if !detail.Session.IsActive() {
		m.closed = true
	}
	m.mu.Unlock()
	return detail, nil
}

// Post sends a message and returns the refreshed view.
func (m *MemberSession) Post(ctx context.Context, content string) (*models.SessionDetail, error) {
	return m.write(ctx, func() error {
		_, err := m.client.PostMessage(ctx, m.sessionID, content)
		return err
	})
}

// Reply answers a message and returns the refreshed view. sender may be nil.
func (m *MemberSession) Reply(ctx context.Context, messageID int64, content string, sender *string) (*models.SessionDetail, error) {
	return m.write(ctx, func() error {
		_, err := m.client.PostReply(ctx, messageID, content, sender)
		return err
	})
}

// ReportEmotion overwrites this member's emotion and returns the refreshed view.
func (m *MemberSession) ReportEmotion(ctx context.Context, emotion, label string) (*models.SessionDetail, error) {
	return m.write(ctx, func() error {
		p, err := m.client.ReportEmotion(ctx, m.sessionID, m.Participant().ID, emotion, label)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.participant = *p
		m.mu.Unlock()
		return nil
	})
}

// write runs one session-scoped write. A server-side InvalidState means the
// session closed since the last fetch; the view is refreshed and
// ErrSessionClosed returned.
func (m *MemberSession) write(ctx context.Context, send func() error) (*models.SessionDetail, error) {
	if m.Closed() {
		return nil, ErrSessionClosed
	}

	if err := send(); err != nil {
		if errors.Is(err, pkg.ErrInvalidState) {
			if _, rerr := m.Refresh(ctx); rerr == nil && m.Closed() {
				return nil, ErrSessionClosed
			}
		}
		return nil, err
	}

	return m.Refresh(ctx)
}
