package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sunny-backend/internal/models"
)

type KnowledgeRepo struct {
	pool *pgxpool.Pool
}

func NewKnowledgeRepo(pool *pgxpool.Pool) *KnowledgeRepo {
	return &KnowledgeRepo{pool: pool}
}

func (r *KnowledgeRepo) List(ctx context.Context) ([]models.KnowledgeEntry, error) {
	query := `SELECT id, title, content, keywords, category, is_active, created_at, updated_at
		FROM knowledge_base ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.KnowledgeEntry
	for rows.Next() {
		var e models.KnowledgeEntry
		err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.Keywords, &e.Category, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *KnowledgeRepo) GetByID(ctx context.Context, id int64) (*models.KnowledgeEntry, error) {
	e := &models.KnowledgeEntry{}
	query := `SELECT id, title, content, keywords, category, is_active, created_at, updated_at
		FROM knowledge_base WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Content, &e.Keywords, &e.Category, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *KnowledgeRepo) Create(ctx context.Context, e *models.KnowledgeEntry) error {
	query := `INSERT INTO knowledge_base (title, content, keywords, category, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		e.Title, e.Content, e.Keywords, e.Category, e.IsActive,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *KnowledgeRepo) Update(ctx context.Context, e *models.KnowledgeEntry) error {
	query := `UPDATE knowledge_base SET title = $1, content = $2, keywords = $3,
		category = $4, is_active = $5, updated_at = NOW() WHERE id = $6`

	tag, err := r.pool.Exec(ctx, query, e.Title, e.Content, e.Keywords, e.Category, e.IsActive, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *KnowledgeRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM knowledge_base WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Search does a keyword containment lookup over active entries for prompt
// context, capped at limit rows.
func (r *KnowledgeRepo) Search(ctx context.Context, query string, limit int) ([]models.KnowledgeEntry, error) {
	sql := `SELECT id, title, content, keywords, category, is_active, created_at, updated_at
		FROM knowledge_base
		WHERE is_active = TRUE
		AND (title ILIKE $1 OR content ILIKE $1 OR keywords ILIKE $1)
		LIMIT $2`

	rows, err := r.pool.Query(ctx, sql, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.KnowledgeEntry
	for rows.Next() {
		var e models.KnowledgeEntry
		err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.Keywords, &e.Category, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
