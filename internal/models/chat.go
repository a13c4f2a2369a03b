package models

import "time"

// Sender values stored on chat messages.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type ChatSession struct {
	ID              string     `json:"id"`
	GuestName       *string    `json:"guest_name"`
	Summary         *string    `json:"summary"`
	RequestID       *string    `json:"request_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationSeconds *int       `json:"duration_seconds"`
}

// ChatMessage is one stored turn of a session. Immutable once written.
type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"` // "user" | "bot"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// APIMessage is the wire shape of a chat turn as the frontend sees it.
type APIMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CollectedData is the structured record accumulated over a conversation.
// Every field is optional; a nil field means "not yet known". Merges are
// additive: a known field is never regressed to unknown.
type CollectedData struct {
	Name        *string        `json:"name,omitempty"`
	Phone       *string        `json:"phone,omitempty"`
	RequestType *string        `json:"request_type,omitempty"`
	Vehicle     *string        `json:"vehicle,omitempty"`
	Plat        *string        `json:"plat,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// ChatTurnRequest is the payload for one message turn.
type ChatTurnRequest struct {
	SessionID     string        `json:"sessionId"`
	Message       string        `json:"message"`
	CollectedData CollectedData `json:"collectedData"`
}

// ChatTurnResponse carries the assistant reply plus the reconciled record.
type ChatTurnResponse struct {
	Message        APIMessage    `json:"message"`
	CollectedData  CollectedData `json:"collected_data"`
	IsDataComplete bool          `json:"is_data_complete"`
	RequestID      string        `json:"requestId,omitempty"`
}

// SessionWithCount is a session row joined with its message count.
type SessionWithCount struct {
	ChatSession
	MessageCount int
}

// SessionListItem is the dashboard history row.
type SessionListItem struct {
	ID           string  `json:"id"`
	User         string  `json:"user"`
	Summary      string  `json:"summary"`
	Duration     string  `json:"duration"`
	Time         string  `json:"time"`
	Date         string  `json:"date"`
	RequestID    *string `json:"requestId"`
	MessageCount int     `json:"messageCount"`
}
