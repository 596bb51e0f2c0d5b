// Package retention implements the retention worker (spec.md §4.J): a
// background loop that periodically purges upload records that have
// been soft-deleted past the configured retention window.
package retention

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/Aviraj-Roy/billverify/internal/config"
	"github.com/Aviraj-Roy/billverify/pkg/metrics"
)

// Store is the narrow slice of pkg/store this worker depends on,
// kept as an interface so the worker can be tested without a live
// database (grounded on the teacher's own pattern of depending on small
// store interfaces from its background controllers rather than a
// concrete client).
type Store interface {
	ListExpiredSoftDeletes(ctx context.Context, olderThan time.Time) ([]string, error)
	HardDelete(ctx context.Context, uploadID string) error
}

// Worker runs the retention sweep on a fixed interval until its context
// is cancelled.
type Worker struct {
	store  Store
	cfg    *config.RetentionConfig
	logger logr.Logger
}

func New(store Store, cfg *config.RetentionConfig, logger logr.Logger) *Worker {
	if cfg == nil {
		cfg = config.DefaultRetentionConfig()
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &Worker{store: store, cfg: cfg, logger: logger}
}

// Run blocks, sweeping every CleanupInterval until ctx is cancelled. A
// sweep failure is logged and the loop continues — this worker never
// crashes the process over a transient store error (spec.md §4.J
// "Idempotent per tick; failures logged, loop continues").
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.Sweep(ctx); err != nil {
				w.logger.Error(err, "retention: sweep failed")
			} else if n > 0 {
				w.logger.Info("retention: sweep complete", "purged", n)
			}
		}
	}
}

// Sweep runs a single retention pass: find soft-deleted records older
// than RetentionDays and permanently delete each. It is safe to call
// concurrently with itself across process instances — HardDelete returns
// an error for a record another instance already purged, and Sweep logs
// it and moves on without counting it as purged.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -w.cfg.RetentionDays)

	ids, err := w.store.ListExpiredSoftDeletes(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, id := range ids {
		if err := w.store.HardDelete(ctx, id); err != nil {
			w.logger.Error(err, "retention: hard delete failed, will retry next tick", "upload_id", id)
			continue
		}
		purged++
	}
	if purged > 0 {
		metrics.RecordRetentionPurged(purged)
	}
	return purged, nil
}
