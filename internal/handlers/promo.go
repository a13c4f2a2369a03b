package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"sunny-backend/internal/models"
)

type promoRepository interface {
	List(ctx context.Context) ([]models.Promo, error)
	GetByID(ctx context.Context, id int64) (*models.Promo, error)
	Create(ctx context.Context, p *models.Promo) error
	Update(ctx context.Context, p *models.Promo) error
	Delete(ctx context.Context, id int64) error
	ListActive(ctx context.Context, limit int) ([]models.Promo, error)
}

type PromoHandler struct {
	repo promoRepository
}

func NewPromoHandler(repo promoRepository) *PromoHandler {
	return &PromoHandler{repo: repo}
}

func (h *PromoHandler) List(w http.ResponseWriter, r *http.Request) {
	promos, err := h.repo.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

// ListActive serves the public marketing site: only live promos.
func (h *PromoHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	promos, err := h.repo.ListActive(r.Context(), 20)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

func (h *PromoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid promo id", r))
		return
	}

	promo, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Promo not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, promo)
}

func (h *PromoHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePromoRequest(w, r)
	if !ok {
		return
	}

	promo := &models.Promo{
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    true,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := h.repo.Create(r.Context(), promo); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, promo)
}

func (h *PromoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid promo id", r))
		return
	}

	req, ok := decodePromoRequest(w, r)
	if !ok {
		return
	}

	promo := &models.Promo{
		ID:          id,
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    true,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if err := h.repo.Update(r.Context(), promo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Promo not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, promo)
}

func (h *PromoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid promo id", r))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Promo not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Promo deleted successfully"})
}

func decodePromoRequest(w http.ResponseWriter, r *http.Request) (models.PromoUpsertRequest, bool) {
	var req models.PromoUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return req, false
	}

	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"title": "title is required"}, r))
		return req, false
	}

	return req, true
}
