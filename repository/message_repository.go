package repository

import (
	"context"

	"github.com/akinalp/emocircle/models"
)

// MessageRepository persists messages. Reads return replies nested and both
// levels in insertion order.
type MessageRepository interface {
	// Create inserts m into an Active session.
	Create(ctx context.Context, m *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.Message, error)
	CountBySession(ctx context.Context, sessionID int64) (int, error)
}

// ReplyRepository persists replies.
type ReplyRepository interface {
	// Create inserts reply under its message if the owning session is Active.
	Create(ctx context.Context, reply *models.Reply) error
}
