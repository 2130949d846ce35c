package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vitalstats/internal/app"
	"vitalstats/internal/domain"
)

func mustDay(t *testing.T, s string) domain.Day {
	t.Helper()
	d, err := domain.ParseDay(s)
	if err != nil {
		t.Fatalf("ParseDay(%q): %v", s, err)
	}
	return d
}

func f64(v float64) *float64 { return &v }

func TestStatsRepository(t *testing.T) {
	db := New()
	ctx := context.Background()
	day := mustDay(t, "2024-03-01")

	rec := &domain.HealthStatsRecord{
		ID:     "r1",
		UserID: "u1",
		Date:   day.Start,
		Vitals: domain.Vitals{BloodOxygen: f64(98)},
	}
	if err := db.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Same slot again is rejected and the original survives
	dup := &domain.HealthStatsRecord{ID: "r2", UserID: "u1", Date: day.Start, Vitals: domain.Vitals{BloodOxygen: f64(50)}}
	if err := db.Insert(ctx, dup); !errors.Is(err, domain.ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
	got, err := db.FindByDay(ctx, "u1", day)
	if err != nil {
		t.Fatalf("FindByDay: %v", err)
	}
	if got.ID != "r1" || *got.Vitals.BloodOxygen != 98 {
		t.Errorf("original record changed: %+v", got)
	}

	// Mutating the returned copy does not touch the store
	*got.Vitals.BloodOxygen = 1
	again, _ := db.FindByDay(ctx, "u1", day)
	if *again.Vitals.BloodOxygen != 98 {
		t.Error("store shares memory with callers")
	}

	// Other user sees nothing
	if _, err := db.FindByDay(ctx, "u2", day); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestStatsRepository_FindRange(t *testing.T) {
	db := New()
	ctx := context.Background()
	for i, d := range []string{"2024-03-03", "2024-02-29", "2024-03-01", "2024-03-02", "2024-03-04"} {
		rec := &domain.HealthStatsRecord{ID: d, UserID: "u1", Date: mustDay(t, d).Start}
		if i == 0 {
			rec.UserID = "u2"
		}
		if err := db.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert %s: %v", d, err)
		}
	}

	recs, err := db.FindRange(ctx, "u1", mustDay(t, "2024-03-01"), mustDay(t, "2024-03-04"))
	if err != nil {
		t.Fatalf("FindRange: %v", err)
	}
	want := []string{"2024-03-01", "2024-03-02", "2024-03-04"}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(recs))
	}
	for i, w := range want {
		if recs[i].ID != w {
			t.Errorf("record %d: expected %s, got %s", i, w, recs[i].ID)
		}
	}
}

func TestStatsRepository_ListAll(t *testing.T) {
	db := New()
	ctx := context.Background()
	_ = db.Insert(ctx, &domain.HealthStatsRecord{ID: "b", UserID: "u2", Date: mustDay(t, "2024-03-01").Start})
	_ = db.Insert(ctx, &domain.HealthStatsRecord{ID: "c", UserID: "u1", Date: mustDay(t, "2024-03-02").Start})
	_ = db.Insert(ctx, &domain.HealthStatsRecord{ID: "a", UserID: "u1", Date: mustDay(t, "2024-03-01").Start})

	recs, err := db.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	order := ""
	for _, r := range recs {
		order += r.ID
	}
	if order != "abc" {
		t.Errorf("expected order abc, got %s", order)
	}
}

func TestStatsRepository_Update(t *testing.T) {
	db := New()
	ctx := context.Background()
	day := mustDay(t, "2024-03-01")
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	if _, err := db.Update(ctx, "u1", day, domain.Vitals{}, domain.ExerciseLog{}, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if recs, _ := db.ListAll(ctx); len(recs) != 0 {
		t.Fatal("update of missing day must not create a record")
	}

	_ = db.Insert(ctx, &domain.HealthStatsRecord{
		ID: "r1", UserID: "u1", Date: day.Start, CreatedAt: created, UpdatedAt: created,
		Vitals: domain.Vitals{BloodOxygen: f64(98), Weight: f64(70)},
	})

	later := created.Add(time.Hour)
	rec, err := db.Update(ctx, "u1", day, domain.Vitals{Weight: f64(71)}, domain.ExerciseLog{Walking: f64(3)}, later)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Vitals.BloodOxygen != nil {
		t.Error("expected bloodOxygen to be dropped by wholesale replacement")
	}
	if *rec.Vitals.Weight != 71 || *rec.ExerciseLog.Walking != 3 {
		t.Errorf("unexpected updated record %+v", rec)
	}
	if !rec.CreatedAt.Equal(created) || !rec.UpdatedAt.Equal(later) {
		t.Errorf("unexpected timestamps created=%v updated=%v", rec.CreatedAt, rec.UpdatedAt)
	}
}

func TestStatsService_ConcurrentSubmit(t *testing.T) {
	svc := app.NewStatsService(New(), nil, time.Second)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, "u1", app.StatsInput{Date: "2024-03-01"})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateRecord):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Errorf("expected 1 success and %d duplicates, got %d and %d", n-1, ok, dup)
	}
}

func TestUserRepository(t *testing.T) {
	db := New()
	ctx := context.Background()

	u := &domain.User{ID: "u1", Username: "testuser", Email: "t@example.com", PasswordHash: "hash"}
	if err := db.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.Create(ctx, &domain.User{ID: "u2", Username: "testuser", Email: "x@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists for username, got %v", err)
	}
	if err := db.Create(ctx, &domain.User{ID: "u3", Username: "other", Email: "t@example.com"}); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists for email, got %v", err)
	}

	got, err := db.GetByUsername(ctx, "testuser")
	if err != nil || got.ID != "u1" {
		t.Fatalf("GetByUsername: %v, %v", got, err)
	}
	if _, err := db.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_ = db.Create(ctx, &domain.User{ID: "u4", Username: "taken", Email: "taken@example.com"})
	taken := "taken"
	if _, err := db.UpdateProfile(ctx, "u1", domain.ProfileUpdate{Username: &taken}, time.Now()); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists on rename, got %v", err)
	}
	w := 80.5
	upd, err := db.UpdateProfile(ctx, "u1", domain.ProfileUpdate{Weight: &w}, time.Now())
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if upd.Weight != 80.5 || upd.PasswordHash != "hash" {
		t.Errorf("unexpected profile %+v", upd)
	}

	users, _ := db.List(ctx)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestRevokedTokenRepository(t *testing.T) {
	db := New()
	repo := db.NewRevokedTokenRepo()
	ctx := context.Background()
	now := time.Now()

	_ = repo.Revoke(ctx, "old", now.Add(-time.Minute))
	_ = repo.Revoke(ctx, "fresh", now.Add(time.Hour))

	if ok, _ := repo.IsRevoked(ctx, "fresh"); !ok {
		t.Error("expected fresh token to be revoked")
	}
	n, err := repo.DeleteExpired(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired: n=%d err=%v", n, err)
	}
	if ok, _ := repo.IsRevoked(ctx, "old"); ok {
		t.Error("expected expired revocation to be swept")
	}
	if ok, _ := repo.IsRevoked(ctx, "fresh"); !ok {
		t.Error("sweep removed a live revocation")
	}
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := New()
	ctx := context.Background()
	day := mustDay(t, "2024-03-01")

	_ = db.Create(ctx, &domain.User{ID: "u1", Username: "one", Email: "one@example.com"})
	_ = db.Create(ctx, &domain.User{ID: "u2", Username: "two", Email: "two@example.com"})
	_ = db.Insert(ctx, &domain.HealthStatsRecord{ID: "a", UserID: "u1", Date: day.Start})
	_ = db.Insert(ctx, &domain.HealthStatsRecord{ID: "b", UserID: "u2", Date: day.Start})

	if err := db.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.FindByDay(ctx, "u1", day); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected u1's record to be deleted, got %v", err)
	}
	if _, err := db.FindByDay(ctx, "u2", day); err != nil {
		t.Errorf("u2's record should survive: %v", err)
	}
	if users, _ := db.List(ctx); len(users) != 1 || users[0].ID != "u2" {
		t.Errorf("unexpected users %+v", users)
	}
	if err := db.Delete(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
