package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxContentLength bounds message and reply content, in characters.
const MaxContentLength = 2000

// Message is an anonymous transcript entry. Sender is always null; the
// column exists so the policy is visible in the data.
type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Content   string    `json:"content"`
	Sender    *string   `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
	Replies   []Reply   `json:"replies"` // oldest first
}

// Reply is a single-level child of a message.
type Reply struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	Content   string    `json:"content"`
	Sender    *string   `json:"sender"` // nullable; kept only under the keep-replies policy
	CreatedAt time.Time `json:"created_at"`
}

// CreateMessageRequest posts a message. A sender in the body is ignored.
type CreateMessageRequest struct {
	Content string  `json:"content"`
	Sender  *string `json:"sender,omitempty"`
}

// Validate trims content and checks its length.
func (r *CreateMessageRequest) Validate() error {
	content, err := validateContent(r.Content, "message")
	r.Content = content
	return err
}

// CreateReplyRequest posts a reply to a message.
type CreateReplyRequest struct {
	Content string  `json:"content"`
	Sender  *string `json:"sender,omitempty"`
}

// Validate trims content and sender and checks their lengths. A blank sender
// becomes nil.
func (r *CreateReplyRequest) Validate() error {
	content, err := validateContent(r.Content, "reply")
	r.Content = content
	if err != nil {
		return err
	}

	if r.Sender != nil {
		sender := strings.TrimSpace(*r.Sender)
		if sender == "" {
			r.Sender = nil
			return nil
		}
		if utf8.RuneCountInString(sender) > 64 {
			return fmt.Errorf("reply sender must be at most 64 characters")
		}
		r.Sender = &sender
	}
	return nil
}

func validateContent(raw, kind string) (string, error) {
	content := strings.TrimSpace(raw)
	contentLen := utf8.RuneCountInString(content)
	if contentLen < 1 {
		return content, fmt.Errorf("%s content is required", kind)
	}
	if contentLen > MaxContentLength {
		return content, fmt.Errorf("%s content must be at most %d characters", kind, MaxContentLength)
	}
	return content, nil
}
