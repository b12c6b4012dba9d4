package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"paycanvas.org/internal/obs"
)

// DefaultSweepInterval is how often expired refresh sessions are purged.
const DefaultSweepInterval = time.Hour

// Janitor periodically deletes expired refresh sessions.
type Janitor struct {
	sessions *Sessions
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewJanitor(sessions *Sessions, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{sessions: sessions, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs a single purge and returns the number of removed sessions.
func (j *Janitor) Sweep(ctx context.Context) int64 {
	n, err := j.sessions.SweepExpired(ctx, j.now().UTC())
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Warn("session sweep failed", zap.Error(err))
		}
		return 0
	}
	if n > 0 {
		obs.SessionsSwept(n)
		j.logger.Debug("expired sessions removed", zap.Int64("count", n))
	}
	return n
}
