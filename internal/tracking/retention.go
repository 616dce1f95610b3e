package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultRetentionDays applies when a non-positive retention is requested.
const DefaultRetentionDays = 30

type RetentionStore interface {
	DeleteDeliveredSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PurgeRecorder interface {
	RecordPurged(table string, n int64)
}

// Cleaner purges old delivered snapshots and old events.
type Cleaner struct {
	store    RetentionStore
	clock    clock.Clock
	logger   *otelzap.Logger
	recorder PurgeRecorder
}

func NewCleaner(store RetentionStore, clk clock.Clock, logger *otelzap.Logger) *Cleaner {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Cleaner{store: store, clock: clk, logger: logger}
}

func (c *Cleaner) WithRecorder(r PurgeRecorder) *Cleaner {
	c.recorder = r
	return c
}

// CleanSnapshots deletes delivered snapshots not updated within days.
// Undelivered snapshots are kept regardless of age.
func (c *Cleaner) CleanSnapshots(ctx context.Context, days int) (int64, error) {
	cutoff := c.cutoff(days)
	n, err := c.store.DeleteDeliveredSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning snapshots: %w", err)
	}
	c.purged(ctx, "tracking_snapshots", n, cutoff)
	return n, nil
}

// CleanEvents deletes events older than days, delivered or not.
func (c *Cleaner) CleanEvents(ctx context.Context, days int) (int64, error) {
	cutoff := c.cutoff(days)
	n, err := c.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning events: %w", err)
	}
	c.purged(ctx, "tracking_events", n, cutoff)
	return n, nil
}

// Run cleans both tables every interval until ctx is done.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration, snapshotDays, eventDays int) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if _, err := c.CleanSnapshots(ctx, snapshotDays); err != nil {
			c.logger.Ctx(ctx).Error("Snapshot retention failed", zap.Error(err))
		}
		if _, err := c.CleanEvents(ctx, eventDays); err != nil {
			c.logger.Ctx(ctx).Error("Event retention failed", zap.Error(err))
		}
	}
}

func (c *Cleaner) cutoff(days int) time.Time {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return c.clock.Now().AddDate(0, 0, -days)
}

func (c *Cleaner) purged(ctx context.Context, table string, n int64, cutoff time.Time) {
	if c.recorder != nil {
		c.recorder.RecordPurged(table, n)
	}
	c.logger.Ctx(ctx).Info("Retention cleanup",
		zap.String("table", table),
		zap.Int64("deleted", n),
		zap.Time("cutoff", cutoff),
	)
}
