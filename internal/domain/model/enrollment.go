package model

import (
	"time"
)

// Enrollment is a user's registration record for one olympiad.
// At most one exists per (user, olympiad); created on first registration
// or first submission, never updated afterwards.
type Enrollment struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	OlympiadID   string    `json:"olympiad_id"`
	RegisteredAt time.Time `json:"registered_at"`
	Username     *string   `json:"username,omitempty"` // For display
}
