package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"vitalstats/internal/domain"

	"github.com/google/uuid"
)

// StatsInput is the payload of a submit or update request.
type StatsInput struct {
	Date        string
	Vitals      domain.Vitals
	ExerciseLog domain.ExerciseLog
}

// StatsService encapsulates the daily health-stats use cases.
type StatsService struct {
	repo    domain.StatsRepository
	events  EventPublisher
	timeout time.Duration
	now     func() time.Time
}

// NewStatsService creates a StatsService backed by the given repository.
// A nil publisher discards events; a non-positive timeout selects
// DefaultStoreTimeout.
func NewStatsService(repo domain.StatsRepository, events EventPublisher, timeout time.Duration) *StatsService {
	if events == nil {
		events = discardPublisher{}
	}
	return &StatsService{repo: repo, events: events, timeout: timeout, now: time.Now}
}

// Submit creates the record for the user's day. It fails with
// ErrDuplicateRecord when the day already has one and never overwrites it.
func (s *StatsService) Submit(ctx context.Context, userID string, in StatsInput) (*domain.HealthStatsRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateStats(in.Vitals, in.ExerciseLog); err != nil {
		return nil, err
	}
	day, err := domain.ParseDay(in.Date)
	if err != nil {
		return nil, err
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	rec := &domain.HealthStatsRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        day.Start,
		Vitals:      in.Vitals,
		ExerciseLog: in.ExerciseLog,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// The store's unique (user, day) constraint decides between concurrent
	// submits; there is no separate existence check.
	if err := s.repo.Insert(sctx, rec); err != nil {
		return nil, storeError("submit: insert", err)
	}

	s.publish(ctx, domain.StatsCreated, *rec)
	return rec, nil
}

// GetByDay returns the user's record for the day containing date.
func (s *StatsService) GetByDay(ctx context.Context, userID, date string) (*domain.HealthStatsRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	day, err := domain.ParseDay(date)
	if err != nil {
		return nil, err
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.repo.FindByDay(sctx, userID, day)
	if err != nil {
		return nil, storeError("get by day", err)
	}
	return rec, nil
}

// GetByRange returns the user's records from the start day through the end
// day inclusive, ascending by date. The result is never nil.
func (s *StatsService) GetByRange(ctx context.Context, userID, start, end string) ([]domain.HealthStatsRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	from, err := domain.ParseDay(start)
	if err != nil {
		return nil, err
	}
	to, err := domain.ParseDay(end)
	if err != nil {
		return nil, err
	}
	if to.Start.Before(from.Start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", domain.ErrInvalidInput, to, from)
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	recs, err := s.repo.FindRange(sctx, userID, from, to)
	if err != nil {
		return nil, storeError("get by range", err)
	}
	if recs == nil {
		recs = []domain.HealthStatsRecord{}
	}
	return recs, nil
}

// ListAll returns every record of every user. An empty store is reported
// as ErrNotFound so callers can tell "nothing stored" from a failure.
func (s *StatsService) ListAll(ctx context.Context) ([]domain.HealthStatsRecord, error) {
	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	recs, err := s.repo.ListAll(sctx)
	if err != nil {
		return nil, storeError("list all", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("list all: no health stats found: %w", domain.ErrNotFound)
	}
	return recs, nil
}

// Update replaces the vitals and exercise log of the user's existing record
// for the day. Fields omitted from the input become absent; nothing is
// merged. A missing record yields ErrNotFound and no write.
func (s *StatsService) Update(ctx context.Context, userID string, in StatsInput) (*domain.HealthStatsRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateStats(in.Vitals, in.ExerciseLog); err != nil {
		return nil, err
	}
	day, err := domain.ParseDay(in.Date)
	if err != nil {
		return nil, err
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.repo.Update(sctx, userID, day, in.Vitals, in.ExerciseLog, s.now().UTC())
	if err != nil {
		return nil, storeError("update "+day.String(), err)
	}

	s.publish(ctx, domain.StatsUpdated, *rec)
	return rec, nil
}

func (s *StatsService) publish(ctx context.Context, typ string, rec domain.HealthStatsRecord) {
	ev := domain.StatsEvent{Type: typ, Record: rec, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("stats: publish %s for record %s: %v", typ, rec.ID, err)
	}
}

func requireUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return nil
}
