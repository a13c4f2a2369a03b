package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"sunny-backend/internal/models"
	"sunny-backend/internal/services"
)

// ─── Chat Handler Tests ───

type stubChatService struct {
	turn    *models.ChatTurnResponse
	turnErr error
}

func (s *stubChatService) StartSession(_ context.Context) (*models.ChatSession, models.APIMessage, error) {
	return &models.ChatSession{ID: "SESS-123"}, models.APIMessage{Role: "assistant", Content: "Halo!"}, nil
}

func (s *stubChatService) GetSession(_ context.Context, id string) (*models.ChatSession, []models.ChatMessage, error) {
	if id != "SESS-123" {
		return nil, nil, &services.NotFoundError{Message: "Session not found"}
	}
	return &models.ChatSession{ID: id}, []models.ChatMessage{
		{SessionID: id, Sender: models.SenderBot, Message: "Halo!"},
	}, nil
}

func (s *stubChatService) HandleMessage(_ context.Context, _, _ string, _ models.CollectedData) (*models.ChatTurnResponse, error) {
	return s.turn, s.turnErr
}

func (s *stubChatService) EndSession(_ context.Context, _ string) (string, int, error) {
	return "Chat session", 42, nil
}

func (s *stubChatService) ListSessions(_ context.Context, _ int) ([]models.SessionListItem, error) {
	return []models.SessionListItem{}, nil
}

func TestCreateSession(t *testing.T) {
	h := NewChatHandler(&stubChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/session", nil)
	rr := httptest.NewRecorder()
	h.CreateSession(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["sessionId"] != "SESS-123" {
		t.Errorf("sessionId = %v", resp["sessionId"])
	}
}

func TestSendMessageValidation(t *testing.T) {
	h := NewChatHandler(&stubChatService{})

	tests := []struct {
		name string
		body string
	}{
		{"missing sessionId", `{"message": "halo"}`},
		{"missing message", `{"sessionId": "SESS-123"}`},
		{"empty body", `{}`},
		{"invalid json", `{not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			h.SendMessage(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("code = %q", resp.Error.Code)
			}
		})
	}
}

func TestSendMessageSuccess(t *testing.T) {
	name := "Budi"
	h := NewChatHandler(&stubChatService{
		turn: &models.ChatTurnResponse{
			Message:        models.APIMessage{Role: "assistant", Content: "Siap Kak Budi!"},
			CollectedData:  models.CollectedData{Name: &name},
			IsDataComplete: true,
			RequestID:      "REQ-456",
		},
	})

	body := `{"sessionId": "SESS-123", "message": "mau service", "collectedData": {"name": "Budi"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.SendMessage(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp models.ChatTurnResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RequestID != "REQ-456" || !resp.IsDataComplete {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Message.Content != "Siap Kak Budi!" {
		t.Errorf("message = %+v", resp.Message)
	}
}

func TestSendMessageNotFound(t *testing.T) {
	h := NewChatHandler(&stubChatService{
		turnErr: &services.NotFoundError{Message: "Session not found"},
	})

	body := `{"sessionId": "SESS-999", "message": "halo"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/message", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.SendMessage(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGetSessionRoutes(t *testing.T) {
	h := NewChatHandler(&stubChatService{})

	r := chi.NewRouter()
	r.Get("/chat/session/{id}", h.GetSession)

	req := httptest.NewRequest(http.MethodGet, "/chat/session/SESS-123", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/chat/session/SESS-404", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestEndSession(t *testing.T) {
	h := NewChatHandler(&stubChatService{})

	body := `{"sessionId": "SESS-123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/end", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.EndSession(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["success"] != true || resp["summary"] != "Chat session" {
		t.Errorf("resp = %v", resp)
	}
	if resp["duration"] != float64(42) {
		t.Errorf("duration = %v", resp["duration"])
	}
}

// ─── Error Mapping Tests ───

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"email": "bad"}}, http.StatusBadRequest},
		{"conflict", &services.ConflictError{Message: "dup"}, http.StatusConflict},
		{"not found", &services.NotFoundError{Message: "gone"}, http.StatusNotFound},
		{"unauthorized", &services.UnauthorizedError{Message: "no"}, http.StatusUnauthorized},
		{"forbidden", &services.ForbiddenError{Message: "no"}, http.StatusForbidden},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rr := httptest.NewRecorder()
			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.code {
				t.Errorf("status = %d, want %d", rr.Code, tc.code)
			}
		})
	}
}

func TestErrorRespCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	resp := errorResp("NOT_FOUND", "gone", req)
	if resp.Error.RequestID != "abc-123" {
		t.Errorf("request id = %q", resp.Error.RequestID)
	}
}

// ─── Request Handler Tests ───

func TestUpdateStatusValidation(t *testing.T) {
	h := NewRequestHandler(nil)

	r := chi.NewRouter()
	r.Put("/requests/{id}/status", h.UpdateStatus)

	req := httptest.NewRequest(http.MethodPut, "/requests/REQ-123/status", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

// ─── Knowledge Handler Tests ───

func TestKnowledgeCreateValidation(t *testing.T) {
	h := NewKnowledgeHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/knowledge", strings.NewReader(`{"title": "only title"}`))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Fields["content"] == "" {
		t.Errorf("expected content field error, got %+v", resp.Error.Fields)
	}
}
