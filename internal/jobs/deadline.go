package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tenderhub/tender-insight-hub/internal/safego"
	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// ExpiredTenderCloser closes open tenders whose deadline is before now.
type ExpiredTenderCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

// DeadlineJob periodically moves expired open tenders to closed.
type DeadlineJob struct {
	tenders  ExpiredTenderCloser
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDeadlineJob creates a new deadline job
func NewDeadlineJob(tenders ExpiredTenderCloser, interval time.Duration) *DeadlineJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &DeadlineJob{
		tenders:  tenders,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the deadline job
func (j *DeadlineJob) Start(ctx context.Context) {
	slog.Info("starting tender deadline job", "interval", j.interval)

	j.wg.Add(1)
	safego.Go("tender-deadlines", func() {
		defer j.wg.Done()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				j.RunOnce(ctx)
			case <-j.stopCh:
				slog.Info("tender deadline job stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	})
}

// Stop stops the deadline job
func (j *DeadlineJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
}

// RunOnce closes expired tenders and returns how many were closed.
func (j *DeadlineJob) RunOnce(ctx context.Context) int64 {
	n, err := j.tenders.CloseExpired(ctx, j.now().UTC())
	if err != nil {
		slog.Error("failed to close expired tenders", "error", err)
		return 0
	}
	if n > 0 {
		telemetry.TendersClosedTotal.Add(float64(n))
		slog.Info("closed expired tenders", "count", n)
	}
	return n
}
