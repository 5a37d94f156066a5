package model

import (
	"time"
)

type OlympiadStatus string
type OlympiadDifficulty string

const (
	StatusUpcoming OlympiadStatus = "upcoming"
	StatusActive   OlympiadStatus = "active"
	StatusClosed   OlympiadStatus = "closed"

	DifficultyEasy   OlympiadDifficulty = "easy"
	DifficultyMedium OlympiadDifficulty = "medium"
	DifficultyHard   OlympiadDifficulty = "hard"
)

type Olympiad struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Subject     string             `json:"subject"`
	Description string             `json:"description"`
	Rules       string             `json:"rules"`
	Difficulty  OlympiadDifficulty `json:"difficulty"`
	StartAt     time.Time          `json:"start_at"`
	EndAt       time.Time          `json:"end_at"`
	// Status is a write-through cache of ResolveStatus over (now, StartAt, EndAt).
	// It may be stale between recomputations; readers go through the olympiad
	// service which refreshes it first.
	Status            OlympiadStatus `json:"status"`
	CreatedByID       string         `json:"created_by_id"`
	CreatedByUsername *string        `json:"created_by_username,omitempty"` // For display
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Problems          []Problem      `json:"problems,omitempty"`
}

// ResolveStatus maps the current instant onto an olympiad lifecycle phase.
// Both boundary instants count as active. Total over any inputs; callers
// must reject startAt >= endAt at creation time.
func ResolveStatus(now, startAt, endAt time.Time) OlympiadStatus {
	if now.Before(startAt) {
		return StatusUpcoming
	}
	if now.After(endAt) {
		return StatusClosed
	}
	return StatusActive
}
