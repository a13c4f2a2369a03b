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

type knowledgeRepository interface {
	List(ctx context.Context) ([]models.KnowledgeEntry, error)
	GetByID(ctx context.Context, id int64) (*models.KnowledgeEntry, error)
	Create(ctx context.Context, e *models.KnowledgeEntry) error
	Update(ctx context.Context, e *models.KnowledgeEntry) error
	Delete(ctx context.Context, id int64) error
}

type KnowledgeHandler struct {
	repo knowledgeRepository
}

func NewKnowledgeHandler(repo knowledgeRepository) *KnowledgeHandler {
	return &KnowledgeHandler{repo: repo}
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid knowledge id", r))
		return
	}

	entry, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Knowledge not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKnowledgeRequest(w, r)
	if !ok {
		return
	}

	entry := &models.KnowledgeEntry{
		Title:    req.Title,
		Content:  req.Content,
		Keywords: req.Keywords,
		Category: req.Category,
		IsActive: true,
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	if err := h.repo.Create(r.Context(), entry); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid knowledge id", r))
		return
	}

	req, ok := decodeKnowledgeRequest(w, r)
	if !ok {
		return
	}

	entry := &models.KnowledgeEntry{
		ID:       id,
		Title:    req.Title,
		Content:  req.Content,
		Keywords: req.Keywords,
		Category: req.Category,
		IsActive: true,
	}
	if req.IsActive != nil {
		entry.IsActive = *req.IsActive
	}

	if err := h.repo.Update(r.Context(), entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Knowledge not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid knowledge id", r))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Knowledge not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Knowledge deleted successfully"})
}

func decodeKnowledgeRequest(w http.ResponseWriter, r *http.Request) (models.KnowledgeUpsertRequest, bool) {
	var req models.KnowledgeUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return req, false
	}

	fieldErrors := make(map[string]string)
	if req.Title == "" {
		fieldErrors["title"] = "title is required"
	}
	if req.Content == "" {
		fieldErrors["content"] = "content is required"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return req, false
	}

	return req, true
}
