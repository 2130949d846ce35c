package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vitalstats/internal/domain"
)

// DefaultStoreTimeout bounds every store call made by a service.
const DefaultStoreTimeout = 5 * time.Second

func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// storeError wraps err with op. Domain outcomes pass through unchanged in
// meaning; anything else from the store is reported as ErrStoreUnavailable.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicateRecord),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrStoreUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
}
