package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"sunny-backend/internal/models"
)

type requestRepository interface {
	List(ctx context.Context) ([]models.Request, error)
	GetByID(ctx context.Context, id string) (*models.Request, error)
	GetStatusHistory(ctx context.Context, requestID string) ([]models.RequestStatusHistory, error)
	UpdateStatus(ctx context.Context, id, status, label string) error
	Delete(ctx context.Context, id string) error
}

type RequestHandler struct {
	repo requestRepository
}

func NewRequestHandler(repo requestRepository) *RequestHandler {
	return &RequestHandler{repo: repo}
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := h.repo.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	request, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Request not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	history, err := h.repo.GetStatusHistory(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"request": request,
		"history": history,
	})
}

func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"status": "status is required"}, r))
		return
	}

	label := req.Label
	if label == "" {
		label = req.Status
	}

	if err := h.repo.UpdateStatus(r.Context(), id, req.Status, label); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Request not found", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Status updated successfully"})
}

func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Request deleted successfully"})
}
