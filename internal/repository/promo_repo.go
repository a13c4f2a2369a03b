package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sunny-backend/internal/models"
)

type PromoRepo struct {
	pool *pgxpool.Pool
}

func NewPromoRepo(pool *pgxpool.Pool) *PromoRepo {
	return &PromoRepo{pool: pool}
}

func (r *PromoRepo) List(ctx context.Context) ([]models.Promo, error) {
	query := `SELECT id, code, title, description, image_url, is_active, start_date, end_date, created_at
		FROM promos ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promos []models.Promo
	for rows.Next() {
		var p models.Promo
		err := rows.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &p.ImageURL, &p.IsActive, &p.StartDate, &p.EndDate, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}

	return promos, rows.Err()
}

func (r *PromoRepo) GetByID(ctx context.Context, id int64) (*models.Promo, error) {
	p := &models.Promo{}
	query := `SELECT id, code, title, description, image_url, is_active, start_date, end_date, created_at
		FROM promos WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Code, &p.Title, &p.Description, &p.ImageURL, &p.IsActive, &p.StartDate, &p.EndDate, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PromoRepo) Create(ctx context.Context, p *models.Promo) error {
	query := `INSERT INTO promos (code, title, description, image_url, is_active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		p.Code, p.Title, p.Description, p.ImageURL, p.IsActive, p.StartDate, p.EndDate,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *PromoRepo) Update(ctx context.Context, p *models.Promo) error {
	query := `UPDATE promos SET code = $1, title = $2, description = $3, image_url = $4,
		is_active = $5, start_date = $6, end_date = $7 WHERE id = $8`

	tag, err := r.pool.Exec(ctx, query, p.Code, p.Title, p.Description, p.ImageURL, p.IsActive, p.StartDate, p.EndDate, p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PromoRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM promos WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListActive returns promos inside their active date window, newest first,
// capped at limit rows for prompt context.
func (r *PromoRepo) ListActive(ctx context.Context, limit int) ([]models.Promo, error) {
	query := `SELECT id, code, title, description, image_url, is_active, start_date, end_date, created_at
		FROM promos
		WHERE is_active = TRUE
		AND (start_date IS NULL OR start_date <= CURRENT_DATE)
		AND (end_date IS NULL OR end_date >= CURRENT_DATE)
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promos []models.Promo
	for rows.Next() {
		var p models.Promo
		err := rows.Scan(&p.ID, &p.Code, &p.Title, &p.Description, &p.ImageURL, &p.IsActive, &p.StartDate, &p.EndDate, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}

	return promos, rows.Err()
}
