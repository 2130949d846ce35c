// Package rediscache provides a read-through Redis cache in front of a
// domain.StatsRepository.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"vitalstats/internal/domain"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a cached record lives.
const DefaultTTL = 5 * time.Minute

// cachedRecord is the cached form of a record. The domain type renders its
// timestamps with millisecond precision, so the cache keeps its own layout.
type cachedRecord struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Date        time.Time          `json:"date"`
	Vitals      domain.Vitals      `json:"vitals"`
	ExerciseLog domain.ExerciseLog `json:"exerciseLog"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Store caches FindByDay lookups. Writes store the new record under the
// slot's key; a miss only fills an empty key (SETNX), so a slow reader cannot
// replace a newer entry written meanwhile. Redis errors never fail a call;
// the underlying repository is authoritative.
type Store struct {
	next domain.StatsRepository
	rdb  redis.Cmdable
	ttl  time.Duration
}

var _ domain.StatsRepository = (*Store)(nil)

// New wraps next with a cache on rdb. A non-positive ttl selects DefaultTTL.
func New(next domain.StatsRepository, rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{next: next, rdb: rdb, ttl: ttl}
}

func key(userID string, day domain.Day) string {
	return fmt.Sprintf("healthstats:%s:%s", userID, day)
}

// Insert writes through and caches the new record.
func (s *Store) Insert(ctx context.Context, rec *domain.HealthStatsRecord) error {
	if err := s.next.Insert(ctx, rec); err != nil {
		return err
	}
	s.store(ctx, key(rec.UserID, domain.DayOf(rec.Date)), rec)
	return nil
}

// FindByDay serves from the cache when possible and fills it on a miss.
func (s *Store) FindByDay(ctx context.Context, userID string, day domain.Day) (*domain.HealthStatsRecord, error) {
	k := key(userID, day)
	raw, err := s.rdb.Get(ctx, k).Bytes()
	switch {
	case err == nil:
		var c cachedRecord
		if jerr := json.Unmarshal(raw, &c); jerr == nil {
			rec := domain.HealthStatsRecord(c)
			return &rec, nil
		}
		log.Printf("rediscache: drop corrupt entry %s", k)
		s.invalidate(ctx, k)
	case !errors.Is(err, redis.Nil):
		log.Printf("rediscache: get %s: %v", k, err)
	}

	rec, err := s.next.FindByDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(cachedRecord(*rec)); err == nil {
		if err := s.rdb.SetNX(ctx, k, raw, s.ttl).Err(); err != nil {
			log.Printf("rediscache: setnx %s: %v", k, err)
		}
	}
	return rec, nil
}

// FindRange is not cached.
func (s *Store) FindRange(ctx context.Context, userID string, from, to domain.Day) ([]domain.HealthStatsRecord, error) {
	return s.next.FindRange(ctx, userID, from, to)
}

// ListAll is not cached.
func (s *Store) ListAll(ctx context.Context) ([]domain.HealthStatsRecord, error) {
	return s.next.ListAll(ctx)
}

// Update writes through and caches the updated record.
func (s *Store) Update(ctx context.Context, userID string, day domain.Day, vitals domain.Vitals, log domain.ExerciseLog, updatedAt time.Time) (*domain.HealthStatsRecord, error) {
	rec, err := s.next.Update(ctx, userID, day, vitals, log, updatedAt)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key(userID, day), rec)
	return rec, nil
}

// store overwrites k with rec. If that fails the key is dropped so an older
// entry cannot outlive the write.
func (s *Store) store(ctx context.Context, k string, rec *domain.HealthStatsRecord) {
	raw, err := json.Marshal(cachedRecord(*rec))
	if err == nil {
		err = s.rdb.Set(ctx, k, raw, s.ttl).Err()
	}
	if err != nil {
		log.Printf("rediscache: set %s: %v", k, err)
		s.invalidate(ctx, k)
	}
}

func (s *Store) invalidate(ctx context.Context, k string) {
	if err := s.rdb.Del(ctx, k).Err(); err != nil {
		log.Printf("rediscache: del %s: %v", k, err)
	}
}

// Dial connects to Redis and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
