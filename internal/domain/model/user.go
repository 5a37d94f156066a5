package model

import (
	"time"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserProfile is one-to-one with User. Role is a single value, not a set;
// every gated operation checks it explicitly.
type UserProfile struct {
	UserID       string    `json:"user_id"`
	Role         string    `json:"role"`
	Bio          string    `json:"bio"`
	Organization string    `json:"organization"`
	AvatarPath   *string   `json:"avatar_path,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanGrade reports whether the role alone grants grading capability.
// Olympiad creators are additionally allowed per olympiad; that check
// lives in the submission service where the olympiad is at hand.
func CanGrade(role string) bool {
	return role == RoleTeacher || role == RoleAdmin
}

// CanCreateOlympiad reports whether the role may create olympiads.
func CanCreateOlympiad(role string) bool {
	return role == RoleTeacher || role == RoleAdmin
}
