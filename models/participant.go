package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Participant is a member of a session. Only the latest emotion is kept.
type Participant struct {
	ID               int64     `json:"id"`
	SessionID        int64     `json:"session_id"`
	Name             string    `json:"name"`
	Emotion          string    `json:"emotion"`       // emoji code, e.g. "😊"
	EmotionLabel     string    `json:"emotion_label"` // e.g. "Happy"
	EmotionUpdatedAt time.Time `json:"emotion_updated_at"`
	JoinedAt         time.Time `json:"joined_at"`
}

// JoinSessionRequest joins the Active session holding Code.
type JoinSessionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Validate normalizes the code and checks the member name (1-64 characters).
func (r *JoinSessionRequest) Validate() error {
	r.Code = NormalizeCode(r.Code)
	r.Name = strings.TrimSpace(r.Name)

	if r.Code == "" {
		return fmt.Errorf("session code is required")
	}
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 1 {
		return fmt.Errorf("member name is required")
	}
	if nameLen > 64 {
		return fmt.Errorf("member name must be at most 64 characters")
	}
	return nil
}

// JoinResult is returned to a member after joining.
type JoinResult struct {
	SessionID    int64         `json:"session_id"`
	Participant  Participant   `json:"participant"`
	Participants []Participant `json:"participants"`
}

// ReportEmotionRequest overwrites a participant's emotion snapshot.
type ReportEmotionRequest struct {
	Emotion string `json:"emotion"`
	Label   string `json:"label"`
}

// Validate requires an emotion code; the label defaults from the category
// table when the code is known.
func (r *ReportEmotionRequest) Validate() error {
	r.Emotion = strings.TrimSpace(r.Emotion)
	r.Label = strings.TrimSpace(r.Label)

	if r.Emotion == "" {
		return fmt.Errorf("emotion is required")
	}
	if utf8.RuneCountInString(r.Emotion) > 16 {
		return fmt.Errorf("emotion must be at most 16 characters")
	}
	if r.Label == "" {
		if cat, ok := LookupEmotion(r.Emotion); ok {
			r.Label = cat.Label
		} else {
			return fmt.Errorf("emotion label is required")
		}
	}
	if utf8.RuneCountInString(r.Label) > 32 {
		return fmt.Errorf("emotion label must be at most 32 characters")
	}
	return nil
}
