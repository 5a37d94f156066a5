package model

import (
	"time"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionReviewed SubmissionStatus = "reviewed"
)

type Submission struct {
	ID               string           `json:"id"`
	EnrollmentID     string           `json:"enrollment_id"`
	ProblemID        string           `json:"problem_id"`
	FilePath         string           `json:"file_path"`
	OriginalFilename string           `json:"original_filename"`
	SizeBytes        int64            `json:"size_bytes"`
	Status           SubmissionStatus `json:"status"`
	Score            *int             `json:"score,omitempty"` // nil until reviewed
	Comment          string           `json:"comment"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty"`
	ReviewedByID     *string          `json:"reviewed_by_id,omitempty"`
	ProblemTitle     *string          `json:"problem_title,omitempty"` // For display
	Username         *string          `json:"username,omitempty"`     // For display (grader listings)
}
