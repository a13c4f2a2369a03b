package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a dashboard admin account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// API error envelope shared by every handler.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WSMessage is one event on the dashboard live feed.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RequestCreatedEvent is published when a chat session produces a lead.
type RequestCreatedEvent struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
}

// SessionEndedEvent is published when a chat session is closed.
type SessionEndedEvent struct {
	SessionID       string `json:"session_id"`
	Summary         string `json:"summary"`
	DurationSeconds int    `json:"duration_seconds"`
}
