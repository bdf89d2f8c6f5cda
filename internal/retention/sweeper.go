package retention

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger is the slice of the repository the sweeper needs.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically purges notification records older than the retention
// horizon (default 30 days). It runs off the request path.
type Sweeper struct {
	repo     Purger
	age      time.Duration
	interval time.Duration
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewSweeper(repo Purger, age, interval time.Duration, logger *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		age:      age,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweepOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	cutoff := s.now().Add(-s.age)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Warnw("retention sweep failed", "err", err)
		return
	}
	if deleted > 0 {
		s.logger.Infow("retention sweep", "deleted", deleted, "cutoff", cutoff)
	}
}
