package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sunny-backend/internal/models"
)

type RequestRepo struct {
	pool *pgxpool.Pool
}

func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

func (r *RequestRepo) List(ctx context.Context) ([]models.Request, error) {
	query := `SELECT id, type, status, name, phone, email, vehicle, plat, details, session_id, notes, created_at
		FROM requests ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		var req models.Request
		err := rows.Scan(
			&req.ID, &req.Type, &req.Status, &req.Name, &req.Phone, &req.Email,
			&req.Vehicle, &req.Plat, &req.Details, &req.SessionID, &req.Notes, &req.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (r *RequestRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	req := &models.Request{}
	query := `SELECT id, type, status, name, phone, email, vehicle, plat, details, session_id, notes, created_at
		FROM requests WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.Type, &req.Status, &req.Name, &req.Phone, &req.Email,
		&req.Vehicle, &req.Plat, &req.Details, &req.SessionID, &req.Notes, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// GetBySessionID returns the lead tied to a session, or nil when the session
// has not produced one yet.
func (r *RequestRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Request, error) {
	req := &models.Request{}
	query := `SELECT id, type, status, name, phone, email, vehicle, plat, details, session_id, notes, created_at
		FROM requests WHERE session_id = $1`

	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&req.ID, &req.Type, &req.Status, &req.Name, &req.Phone, &req.Email,
		&req.Vehicle, &req.Plat, &req.Details, &req.SessionID, &req.Notes, &req.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CreateFromChat inserts a lead for a session exactly once. The existing-lead
// lookup, the insert, the pending status-history row and the session
// back-reference run in one transaction; a unique constraint on
// requests.session_id backs the guard against two racing turns. Returns the
// lead id and whether this call created it.
func (r *RequestRepo) CreateFromChat(ctx context.Context, req *models.Request) (string, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback(ctx)

	var existingID string
	err = tx.QueryRow(ctx,
		"SELECT id FROM requests WHERE session_id = $1", req.SessionID,
	).Scan(&existingID)
	if err == nil {
		return existingID, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO requests (id, type, status, name, phone, email, vehicle, plat, details, session_id, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, req.Type, req.Status, req.Name, req.Phone, req.Email,
		req.Vehicle, req.Plat, req.Details, req.SessionID, req.Notes, req.CreatedAt,
	)
	if err != nil {
		return "", false, err
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO request_status_history (request_id, status, label, created_at) VALUES ($1, $2, $3, $4)",
		req.ID, models.StatusPending, "Request Baru dari Chat", req.CreatedAt,
	)
	if err != nil {
		return "", false, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE chat_sessions SET request_id = $1 WHERE id = $2",
		req.ID, req.SessionID,
	)
	if err != nil {
		return "", false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, err
	}
	return req.ID, true, nil
}

func (r *RequestRepo) GetStatusHistory(ctx context.Context, requestID string) ([]models.RequestStatusHistory, error) {
	query := `SELECT id, request_id, status, label, created_at
		FROM request_status_history WHERE request_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.RequestStatusHistory
	for rows.Next() {
		var h models.RequestStatusHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.Status, &h.Label, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// UpdateStatus changes a lead's status and appends the matching audit row in
// one transaction.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id, status, label string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE requests SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO request_status_history (request_id, status, label, created_at) VALUES ($1, $2, $3, $4)",
		id, status, label, time.Now(),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *RequestRepo) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM requests WHERE id = $1", id)
	return err
}
