package models

import (
	"encoding/json"
	"time"
)

// The closed set of request types. Free-text model output is normalized
// into one of these before a lead is written.
const (
	TypeServiceBooking = "Service Booking"
	TypeTestDrive      = "Test Drive"
	TypeSalesInquiry   = "Sales Inquiry"
	TypeSparepartInfo  = "Sparepart Info"
)

const StatusPending = "pending"

// Request is a sales/service lead materialized from a chat session.
// At most one Request exists per session.
type Request struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Email     *string         `json:"email"`
	Vehicle   *string         `json:"vehicle"`
	Plat      *string         `json:"plat"`
	Details   json.RawMessage `json:"details"`
	SessionID *string         `json:"session_id"`
	Notes     *string         `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
}

// RequestStatusHistory is one row of the append-only status audit trail.
type RequestStatusHistory struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Status    string    `json:"status"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Label  string `json:"label"`
}
