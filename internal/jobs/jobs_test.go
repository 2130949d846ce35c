package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"vitalstats/internal/adapter/memory"
)

func TestTokenSweeper_RunSweep(t *testing.T) {
	repo := memory.New().NewRevokedTokenRepo()
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Revoke(ctx, "a", now.Add(-2*time.Hour))
	_ = repo.Revoke(ctx, "b", now.Add(-time.Minute))
	_ = repo.Revoke(ctx, "c", now.Add(time.Hour))

	s := &TokenSweeper{Revoked: repo, Now: func() time.Time { return now }}
	n, err := s.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if ok, _ := repo.IsRevoked(ctx, "c"); !ok {
		t.Error("live revocation was removed")
	}
}

type failingRepo struct{}

func (failingRepo) Revoke(context.Context, string, time.Time) error { return nil }
func (failingRepo) IsRevoked(context.Context, string) (bool, error) { return false, nil }
func (failingRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("store down")
}

func TestTokenSweeper_RunSweepError(t *testing.T) {
	s := &TokenSweeper{Revoked: failingRepo{}}
	if _, err := s.RunSweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestTokenSweeper_Start(t *testing.T) {
	s := &TokenSweeper{Revoked: memory.New().NewRevokedTokenRepo()}

	if _, err := s.Start("not a schedule"); err == nil {
		t.Error("expected invalid schedule to be rejected")
	}
	c, err := s.Start("@hourly")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()
	if len(c.Entries()) != 1 {
		t.Errorf("expected one scheduled entry, got %d", len(c.Entries()))
	}
}
