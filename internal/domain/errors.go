package domain

import "errors"

var (
	// ErrInvalidInput indicates a request payload or parameter failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateRecord indicates the (user, day) slot already holds a record.
	ErrDuplicateRecord = errors.New("stats for this date already exist for the user")
	// ErrNotFound indicates no record matched the requested key or range.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable indicates the persistence layer failed or timed out.
	// It is the only error callers should retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUserExists indicates the email or username is already registered.
	ErrUserExists = errors.New("user already exists")
)
