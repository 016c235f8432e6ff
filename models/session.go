package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SessionStatus is the lifecycle state of a session. Active -> Closed is the
// only transition; Closed is terminal.
type SessionStatus string

const (
	SessionActive SessionStatus = "Active"
	SessionClosed SessionStatus = "Closed"
)

// ParseSessionStatus accepts "active"/"closed" in any case. An empty string
// yields "" (no filter).
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "active":
		return SessionActive, nil
	case "closed":
		return SessionClosed, nil
	}
	return "", fmt.Errorf("unknown session status %q", s)
}

// Session is one facilitator-owned emotion tracking room.
// Code is always stored upper-case.
type Session struct {
	ID            int64         `json:"id"`
	FacilitatorID string        `json:"facilitator_id"`
	Name          string        `json:"name"`
	Code          string        `json:"code"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	EndedAt       *time.Time    `json:"ended_at"`
}

// IsActive reports whether the session still accepts writes.
func (s *Session) IsActive() bool {
	return s.Status == SessionActive
}

// SessionSummary is a list row: the session plus counts and display fields.
type SessionSummary struct {
	Session
	ParticipantCount int              `json:"participant_count"`
	MessageCount     int              `json:"message_count"`
	Date             string           `json:"date"` // dd/mm/yyyy
	Time             string           `json:"time"` // HH:MM:SS
	Age              string           `json:"age"`  // "3 minutes ago"
	Emotions         []EmotionSummary `json:"emotions,omitempty"`
}

// SessionDetail is the full view used by the live screens.
type SessionDetail struct {
	Session      Session          `json:"session"`
	Participants []Participant    `json:"participants"`
	Messages     []Message        `json:"messages"`
	Emotions     []EmotionSummary `json:"emotions"`
}

// SessionJoinView is what a member sees when looking a code up.
type SessionJoinView struct {
	Session      Session       `json:"session"`
	Participants []Participant `json:"participants"`
}

// CreateSessionRequest starts a new session.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// Validate trims the name and checks its length (1-100 characters).
func (r *CreateSessionRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 1 {
		return fmt.Errorf("session name is required")
	}
	if nameLen > 100 {
		return fmt.Errorf("session name must be at most 100 characters")
	}
	return nil
}

// NormalizeCode trims and upper-cases a join code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
