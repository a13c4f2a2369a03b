package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sunny-backend/internal/models"
)

type chatService interface {
	StartSession(ctx context.Context) (*models.ChatSession, models.APIMessage, error)
	GetSession(ctx context.Context, id string) (*models.ChatSession, []models.ChatMessage, error)
	HandleMessage(ctx context.Context, sessionID, message string, prior models.CollectedData) (*models.ChatTurnResponse, error)
	EndSession(ctx context.Context, sessionID string) (string, int, error)
	ListSessions(ctx context.Context, limit int) ([]models.SessionListItem, error)
}

type ChatHandler struct {
	chat chatService
}

func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// CreateSession opens a new chat session for the site widget.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, welcome, err := h.chat.StartSession(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": session.ID,
		"message":   welcome,
	})
}

// GetSession returns a session and its transcript in widget form.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, messages, err := h.chat.GetSession(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	type transcriptMessage struct {
		Role          string    `json:"role"`
		Content       string    `json:"content"`
		Timestamp     time.Time `json:"timestamp"`
		FormattedTime string    `json:"formattedTime"`
	}

	jakarta := time.FixedZone("WIB", 7*3600)
	out := make([]transcriptMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Sender == models.SenderBot {
			role = "assistant"
		}
		out = append(out, transcriptMessage{
			Role:          role,
			Content:       m.Message,
			Timestamp:     m.CreatedAt,
			FormattedTime: m.CreatedAt.In(jakarta).Format("03:04 PM"),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":  session,
		"messages": out,
	})
}

// SendMessage runs one chat turn.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.ChatTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if req.SessionID == "" {
		fieldErrors["sessionId"] = "sessionId is required"
	}
	if req.Message == "" {
		fieldErrors["message"] = "message is required"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	resp, err := h.chat.HandleMessage(r.Context(), req.SessionID, req.Message, req.CollectedData)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// EndSession closes a session and returns its summary.
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"sessionId": "sessionId is required"}, r))
		return
	}

	summary, duration, err := h.chat.EndSession(r.Context(), req.SessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"summary":  summary,
		"duration": duration,
	})
}

// ListSessions serves the dashboard history page.
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chat.ListSessions(r.Context(), 50)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}
