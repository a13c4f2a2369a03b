package models

import "time"

// KnowledgeEntry is one knowledge-base article surfaced to the assistant
// as auxiliary prompt context.
type KnowledgeEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Keywords  *string   `json:"keywords"`
	Category  *string   `json:"category"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type KnowledgeUpsertRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Keywords *string `json:"keywords"`
	Category *string `json:"category"`
	IsActive *bool   `json:"is_active"`
}
