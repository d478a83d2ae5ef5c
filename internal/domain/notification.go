package domain

import "time"

// Notification is an append-only per-user message. Immutable once created
// except for the read flag.
type Notification struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
