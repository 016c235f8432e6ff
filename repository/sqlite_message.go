package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/emocircle/database"
	"github.com/akinalp/emocircle/models"
	"github.com/akinalp/emocircle/pkg"
)

type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo returns a MessageRepository.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

func (r *sqliteMessageRepo) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (session_id, content, sender, created_at)
		SELECT id, ?, ?, ?
		FROM sessions
		WHERE id = ? AND status = 'Active'
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, m.Content, m.Sender, m.CreatedAt, m.SessionID).Scan(&m.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return sessionWriteRejected(ctx, r.db, m.SessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT id, session_id, content, sender, created_at FROM messages WHERE id = ?`

	m := &models.Message{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.SessionID, &m.Content, &m.Sender, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}
	return m, nil
}

// ListBySession loads messages then all their replies in a second query and
// nests them. Ids grow with insertion, so ORDER BY id is creation order.
func (r *sqliteMessageRepo) ListBySession(ctx context.Context, sessionID int64) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, content, sender, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	index := make(map[int64]int)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Content, &m.Sender, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Replies = []models.Reply{}
		index[m.ID] = len(messages)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	replyRows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.message_id, r.content, r.sender, r.created_at
		FROM replies r
		JOIN messages m ON m.id = r.message_id
		WHERE m.session_id = ?
		ORDER BY r.id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	defer replyRows.Close()

	for replyRows.Next() {
		var reply models.Reply
		if err := replyRows.Scan(&reply.ID, &reply.MessageID, &reply.Content, &reply.Sender, &reply.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		// A message inserted after the first query is not in the index; its
		// replies wait for the next read.
		if i, ok := index[reply.MessageID]; ok {
			messages[i].Replies = append(messages[i].Replies, reply)
		}
	}
	if err := replyRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}

	return messages, nil
}

func (r *sqliteMessageRepo) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

type sqliteReplyRepo struct {
	db database.TxQuerier
}

// NewSQLiteReplyRepo returns a ReplyRepository.
func NewSQLiteReplyRepo(db database.TxQuerier) ReplyRepository {
	return &sqliteReplyRepo{db: db}
}

func (r *sqliteReplyRepo) Create(ctx context.Context, reply *models.Reply) error {
	query := `
		INSERT INTO replies (message_id, content, sender, created_at)
		SELECT m.id, ?, ?, ?
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		WHERE m.id = ? AND s.status = 'Active'
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, reply.Content, reply.Sender, reply.CreatedAt, reply.MessageID).Scan(&reply.ID)
	if errors.Is(err, sql.ErrNoRows) {
		var sessionID int64
		err := r.db.QueryRowContext(ctx, `SELECT session_id FROM messages WHERE id = ?`, reply.MessageID).Scan(&sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: message %d", pkg.ErrNotFound, reply.MessageID)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve message: %w", err)
		}
		return sessionWriteRejected(ctx, r.db, sessionID)
	}
	if err != nil {
		return fmt.Errorf("failed to create reply: %w", err)
	}
	return nil
}
