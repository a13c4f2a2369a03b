package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sunny-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Append(ctx context.Context, m *models.ChatMessage) error {
	query := `INSERT INTO chat_messages (session_id, sender, message, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	return r.pool.QueryRow(ctx, query, m.SessionID, m.Sender, m.Message, m.CreatedAt).Scan(&m.ID)
}

func (r *MessageRepo) ListAll(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	query := `SELECT id, session_id, sender, message, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecent returns the most recent limit messages, oldest first, as
// conversation context for the completion call.
func (r *MessageRepo) ListRecent(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, session_id, sender, message, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Flip back to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ListFirst returns the first limit messages of a session, for end-of-session
// summary generation.
func (r *MessageRepo) ListFirst(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	query := `SELECT id, session_id, sender, message, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC, id ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
