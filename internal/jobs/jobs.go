// Package jobs runs the service's periodic maintenance work.
package jobs

import (
	"context"
	"log"
	"time"

	"vitalstats/internal/domain"

	"github.com/robfig/cron/v3"
)

// TokenSweeper deletes revocation entries for tokens that have expired.
type TokenSweeper struct {
	Revoked domain.RevokedTokenRepository
	Timeout time.Duration
	Now     func() time.Time
}

// RunSweep performs one sweep and returns how many entries it removed.
func (s *TokenSweeper) RunSweep(ctx context.Context) (int64, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	n, err := s.Revoked.DeleteExpired(ctx, now().UTC())
	if err != nil {
		log.Printf("jobs: token sweep: %v", err)
		return 0, err
	}
	if n > 0 {
		log.Printf("jobs: token sweep removed %d expired revocations", n)
	}
	return n, nil
}

// Start schedules the sweep on spec (standard cron syntax or descriptors
// such as "@hourly") and starts the scheduler. Stop the returned cron to
// end it.
func (s *TokenSweeper) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		_, _ = s.RunSweep(context.Background())
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
