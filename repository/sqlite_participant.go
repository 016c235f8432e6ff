package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
)

type sqliteParticipantRepo struct {
	db database.TxQuerier
}

// NewSQLiteParticipantRepo returns a ParticipantRepository.
func NewSQLiteParticipantRepo(db database.TxQuerier) ParticipantRepository {
	return &sqliteParticipantRepo{db: db}
}

const participantColumns = `id, session_id, name, emotion, emotion_label, emotion_updated_at, joined_at`

func (r *sqliteParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	// INSERT ... SELECT from the session row: a Closed (or missing) session
	// yields zero rows, so the status check and the write are one statement.
	query := `
		INSERT INTO participants (session_id, name, emotion, emotion_label, emotion_updated_at, joined_at)
		SELECT id, ?, ?, ?, ?, ?
		FROM sessions
		WHERE id = ? AND status = 'Active'
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.Emotion, p.EmotionLabel, p.EmotionUpdatedAt, p.JoinedAt,
		p.SessionID,
	).Scan(&p.ID)

	if errors.Is(err, sql.ErrNoRows) {
		return sessionWriteRejected(ctx, r.db, p.SessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *sqliteParticipantRepo) GetByID(ctx context.Context, sessionID, participantID int64) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = ? AND session_id = ?`

	p, err := scanParticipant(r.db.QueryRowContext(ctx, query, participantID, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (r *sqliteParticipantRepo) ListBySession(ctx context.Context, sessionID int64) ([]models.Participant, error) {
	query := `SELECT ` + participantColumns + `
		FROM participants
		WHERE session_id = ?
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

func (r *sqliteParticipantRepo) UpdateEmotion(ctx context.Context, sessionID, participantID int64, emotion, label string, at time.Time) (*models.Participant, error) {
	query := `
		UPDATE participants SET emotion = ?, emotion_label = ?, emotion_updated_at = ?
		WHERE id = ? AND session_id = ?
		  AND EXISTS (SELECT 1 FROM sessions WHERE id = ? AND status = 'Active')
		RETURNING ` + participantColumns

	p, err := scanParticipant(r.db.QueryRowContext(ctx, query,
		emotion, label, at,
		participantID, sessionID, sessionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, sessionID, participantID); getErr != nil {
			return nil, getErr
		}
		return nil, sessionWriteRejected(ctx, r.db, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update emotion: %w", err)
	}
	return p, nil
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	p := &models.Participant{}
	if err := row.Scan(&p.ID, &p.SessionID, &p.Name, &p.Emotion, &p.EmotionLabel, &p.EmotionUpdatedAt, &p.JoinedAt); err != nil {
		return nil, err
	}
	return p, nil
}
