package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sunny-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.ChatSession) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO chat_sessions (id, started_at) VALUES ($1, $2)",
		s.ID, s.StartedAt,
	)
	return err
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	query := `SELECT id, guest_name, summary, request_id, started_at, ended_at, duration_seconds
		FROM chat_sessions WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.GuestName, &s.Summary, &s.RequestID, &s.StartedAt, &s.EndedAt, &s.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) UpdateGuestName(ctx context.Context, id, name string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE chat_sessions SET guest_name = $1 WHERE id = $2",
		name, id,
	)
	return err
}

func (r *SessionRepo) End(ctx context.Context, id string, endedAt time.Time, durationSeconds int, summary string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE chat_sessions SET ended_at = $1, duration_seconds = $2, summary = $3 WHERE id = $4",
		endedAt, durationSeconds, summary, id,
	)
	return err
}

// ListWithCounts returns the most recent sessions joined with their message
// counts, for the dashboard history page.
func (r *SessionRepo) ListWithCounts(ctx context.Context, limit int) ([]models.SessionWithCount, error) {
	query := `SELECT cs.id, cs.guest_name, cs.summary, cs.request_id,
			cs.started_at, cs.ended_at, cs.duration_seconds,
			COUNT(cm.id) AS message_count
		FROM chat_sessions cs
		LEFT JOIN chat_messages cm ON cs.id = cm.session_id
		GROUP BY cs.id
		ORDER BY cs.started_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.SessionWithCount
	for rows.Next() {
		var s models.SessionWithCount
		err := rows.Scan(
			&s.ID, &s.GuestName, &s.Summary, &s.RequestID,
			&s.StartedAt, &s.EndedAt, &s.DurationSeconds,
			&s.MessageCount,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_sessions WHERE id = $1", id)
	return err
}
