// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// User represents a registered account. Health-stats records refer to their
// owner by ID; the user holds no list of records.
type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DateOfBirth  time.Time `json:"dateOfBirth"`
	Gender       string    `json:"gender"`
	Weight       float64   `json:"weight"` // kg
	Height       float64   `json:"height"` // cm
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the user fields that may change after registration.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FullName     *string
	Username     *string
	DateOfBirth  *time.Time
	Gender       *string
	Weight       *float64
	Height       *float64
	PasswordHash *string
}

// UserRepository defines the port for user persistence operations.
// Email and username are unique; a violation is reported as ErrUserExists.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate, updatedAt time.Time) (*User, error)
	// Delete removes the user together with all of their health-stats
	// records. It returns ErrNotFound when no such user exists.
	Delete(ctx context.Context, id string) error
}

// RevokedTokenRepository remembers logged-out session tokens until they expire.
type RevokedTokenRepository interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
