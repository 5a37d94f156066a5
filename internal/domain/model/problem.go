package model

import (
	"time"
)

type Problem struct {
	ID             string    `json:"id"`
	OlympiadID     string    `json:"olympiad_id"`
	Title          string    `json:"title"`
	Statement      string    `json:"statement"`
	MaxScore       int       `json:"max_score"`
	AttachmentPath *string   `json:"attachment_path,omitempty"` // Optional statement file
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
