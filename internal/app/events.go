package app

import (
	"context"

	"vitalstats/internal/domain"
)

// EventPublisher delivers stats change notifications. Delivery is best
// effort: a failed publish never fails the write that triggered it.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.StatsEvent) error
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, domain.StatsEvent) error { return nil }
