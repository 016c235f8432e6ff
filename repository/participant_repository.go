package repository

import (
	"context"
	"time"

	"github.com/akinalp/emocircle/models"
)

// ParticipantRepository persists participants and their emotion snapshots.
type ParticipantRepository interface {
	// Create inserts p into an Active session.
	Create(ctx context.Context, p *models.Participant) error
	GetByID(ctx context.Context, sessionID, participantID int64) (*models.Participant, error)
	// ListBySession returns participants in join order.
	ListBySession(ctx context.Context, sessionID int64) ([]models.Participant, error)
	// UpdateEmotion overwrites the snapshot if the session is Active.
	UpdateEmotion(ctx context.Context, sessionID, participantID int64, emotion, label string, at time.Time) (*models.Participant, error)
}
