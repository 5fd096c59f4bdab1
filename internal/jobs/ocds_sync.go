// Package jobs contains background workers that run on a schedule.
// The OCDS sync job pulls recently published tender releases into the tender
// store; the deadline job closes open tenders whose deadline has passed.
// Both are idempotent: re-running a pass after a crash converges on the same rows.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tenderhub/tender-insight-hub/internal/db/models"
	"github.com/tenderhub/tender-insight-hub/internal/ocds"
	"github.com/tenderhub/tender-insight-hub/internal/safego"
	"github.com/tenderhub/tender-insight-hub/internal/telemetry"
)

// ReleaseSource pages through OCDS releases published in a date window.
type ReleaseSource interface {
	FetchAll(ctx context.Context, from, to time.Time, maxPages int, fn func([]ocds.Release) error) error
}

// TenderUpserter stores tenders keyed by their OCDS id.
type TenderUpserter interface {
	UpsertByOCDSID(ctx context.Context, t *models.Tender) (bool, error)
}

// DocumentUpserter stores tender documents keyed by id.
type DocumentUpserter interface {
	Upsert(ctx context.Context, d *models.TenderDocument) error
}

// SyncResult summarises one sync pass.
type SyncResult struct {
	Fetched int
	Created int
	Updated int
	Skipped int
	Failed  int
}

// OCDSSyncJob periodically ingests tender releases
type OCDSSyncJob struct {
	source    ReleaseSource
	tenders   TenderUpserter
	documents DocumentUpserter
	lookback  time.Duration
	maxPages  int
	now       func() time.Time

	running sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewOCDSSyncJob creates a new sync job. Each pass requests releases
// published within lookback of the current time.
func NewOCDSSyncJob(source ReleaseSource, tenders TenderUpserter, documents DocumentUpserter, lookback time.Duration, maxPages int) *OCDSSyncJob {
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return &OCDSSyncJob{
		source:    source,
		tenders:   tenders,
		documents: documents,
		lookback:  lookback,
		maxPages:  maxPages,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start runs a pass immediately and then every interval until Stop is
// called or ctx is cancelled.
func (j *OCDSSyncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	slog.Info("starting OCDS sync job", "interval", interval, "lookback", j.lookback)

	j.wg.Add(1)
	safego.Go("ocds-sync", func() {
		defer j.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		j.runLogged(ctx)

		for {
			select {
			case <-ticker.C:
				j.runLogged(ctx)
			case <-j.stopCh:
				slog.Info("OCDS sync job stopped")
				return
			case <-ctx.Done():
				slog.Info("OCDS sync job context cancelled")
				return
			}
		}
	})
}

// Stop stops the job and waits for an in-flight pass to finish.
func (j *OCDSSyncJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
}

func (j *OCDSSyncJob) runLogged(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("OCDS sync failed", "error", err)
	}
}

// RunOnce performs a single sync pass. Releases that are not tenders are
// skipped; a tender that fails to store is logged and counted, and the pass
// continues with the next release.
func (j *OCDSSyncJob) RunOnce(ctx context.Context) (SyncResult, error) {
	j.running.Lock()
	defer j.running.Unlock()

	start := time.Now()
	to := j.now().UTC()
	from := to.Add(-j.lookback)

	var res SyncResult
	err := j.source.FetchAll(ctx, from, to, j.maxPages, func(releases []ocds.Release) error {
		for _, r := range releases {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Fetched++
			j.ingest(ctx, r, &res)
		}
		return nil
	})

	telemetry.OCDSSyncDuration.Observe(time.Since(start).Seconds())
	telemetry.OCDSTendersIngestedTotal.Add(float64(res.Created + res.Updated))

	switch {
	case err != nil:
		telemetry.OCDSSyncRunsTotal.WithLabelValues("error").Inc()
		return res, err
	case res.Failed > 0:
		telemetry.OCDSSyncRunsTotal.WithLabelValues("partial").Inc()
	default:
		telemetry.OCDSSyncRunsTotal.WithLabelValues("success").Inc()
	}

	slog.Info("OCDS sync completed",
		"fetched", res.Fetched,
		"created", res.Created,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (j *OCDSSyncJob) ingest(ctx context.Context, r ocds.Release, res *SyncResult) {
	tender, err := ocds.ToTender(r)
	if err != nil {
		res.Skipped++
		slog.Debug("skipping OCDS release", "ocid", r.OCID, "reason", err)
		return
	}

	created, err := j.tenders.UpsertByOCDSID(ctx, tender)
	if err != nil {
		res.Failed++
		slog.Warn("failed to store OCDS tender", "ocid", r.OCID, "error", err)
		return
	}
	if created {
		res.Created++
	} else {
		res.Updated++
	}

	for i := range tender.Documents {
		d := &tender.Documents[i]
		d.TenderID = tender.ID
		if err := j.documents.Upsert(ctx, d); err != nil {
			slog.Warn("failed to store OCDS tender document",
				"ocid", r.OCID, "tender_id", tender.ID, "url", d.URL, "error", err)
		}
	}
}
