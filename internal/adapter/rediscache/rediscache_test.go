package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"vitalstats/internal/adapter/memory"
	"vitalstats/internal/domain"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the commands the cache uses on a map.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	hits int
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if v, ok := f.data[key]; ok {
		f.hits++
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "setnx", key)
	if _, ok := f.data[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.Set(ctx, key, value, ttl)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func f64(v float64) *float64 { return &v }

func seed(t *testing.T, store domain.StatsRepository) domain.Day {
	t.Helper()
	day, _ := domain.ParseDay("2024-03-01")
	err := store.Insert(context.Background(), &domain.HealthStatsRecord{
		ID: "r1", UserID: "u1", Date: day.Start,
		Vitals:    domain.Vitals{Weight: f64(70)},
		CreatedAt: time.Date(2024, 3, 1, 8, 0, 0, 123456789, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return day
}

func TestStore_ReadThrough(t *testing.T) {
	rdb := newFakeRedis()
	store := New(memory.New(), rdb, time.Minute)
	ctx := context.Background()
	day := seed(t, store)
	if _, ok := rdb.data[key("u1", day)]; !ok {
		t.Fatal("expected insert to cache the new record")
	}
	delete(rdb.data, key("u1", day))

	first, err := store.FindByDay(ctx, "u1", day)
	if err != nil {
		t.Fatalf("FindByDay: %v", err)
	}
	if _, ok := rdb.data["healthstats:u1:2024-03-01"]; !ok {
		t.Fatal("expected entry to be cached")
	}
	second, err := store.FindByDay(ctx, "u1", day)
	if err != nil {
		t.Fatalf("FindByDay (cached): %v", err)
	}
	if rdb.hits != 1 {
		t.Errorf("expected one cache hit, got %d", rdb.hits)
	}
	if second.ID != first.ID || *second.Vitals.Weight != 70 || !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("cached record differs: %+v vs %+v", second, first)
	}
}

func TestStore_UpdateRefreshesEntry(t *testing.T) {
	rdb := newFakeRedis()
	store := New(memory.New(), rdb, time.Minute)
	ctx := context.Background()
	day := seed(t, store)

	if _, err := store.FindByDay(ctx, "u1", day); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update(ctx, "u1", day, domain.Vitals{Weight: f64(72)}, domain.ExerciseLog{}, time.Now()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	hits := rdb.hits
	rec, err := store.FindByDay(ctx, "u1", day)
	if err != nil {
		t.Fatal(err)
	}
	if *rec.Vitals.Weight != 72 {
		t.Errorf("expected fresh value 72, got %v", *rec.Vitals.Weight)
	}
	if rdb.hits != hits+1 {
		t.Error("expected the updated record to be served from the cache")
	}
}

// interleavedRepo runs during before returning the record it read, the way
// a concurrent write can land between a reader's store read and cache fill.
type interleavedRepo struct {
	domain.StatsRepository
	during func()
}

func (r *interleavedRepo) FindByDay(ctx context.Context, userID string, day domain.Day) (*domain.HealthStatsRecord, error) {
	rec, err := r.StatsRepository.FindByDay(ctx, userID, day)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return rec, err
}

func TestStore_SlowReaderDoesNotOverwriteNewerWrite(t *testing.T) {
	rdb := newFakeRedis()
	repo := &interleavedRepo{StatsRepository: memory.New()}
	store := New(repo, rdb, time.Minute)
	ctx := context.Background()
	day := seed(t, store)
	delete(rdb.data, key("u1", day))

	repo.during = func() {
		if _, err := store.Update(ctx, "u1", day, domain.Vitals{Weight: f64(99)}, domain.ExerciseLog{}, time.Now()); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	stale, err := store.FindByDay(ctx, "u1", day)
	if err != nil {
		t.Fatalf("FindByDay: %v", err)
	}
	if *stale.Vitals.Weight != 70 {
		t.Fatalf("expected the reader to see the value it read, got %v", *stale.Vitals.Weight)
	}

	rec, err := store.FindByDay(ctx, "u1", day)
	if err != nil {
		t.Fatalf("FindByDay: %v", err)
	}
	if *rec.Vitals.Weight != 99 {
		t.Errorf("cache serves weight=%v, store holds 99", *rec.Vitals.Weight)
	}
}

func TestStore_MissIsNotCached(t *testing.T) {
	rdb := newFakeRedis()
	store := New(memory.New(), rdb, time.Minute)
	day, _ := domain.ParseDay("2024-03-01")

	if _, err := store.FindByDay(context.Background(), "u1", day); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(rdb.data) != 0 {
		t.Error("misses must not be cached")
	}
}

func TestStore_RedisDownFallsBack(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	store := New(memory.New(), rdb, time.Minute)
	day := seed(t, store)

	rec, err := store.FindByDay(context.Background(), "u1", day)
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if rec.ID != "r1" {
		t.Errorf("unexpected record %+v", rec)
	}
}
