// Package tracking keeps tracking snapshots current: periodic polling of
// undelivered shipments, the one-off backfill and retention cleanup.
package tracking

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tournevent/courierbridge/internal/broker/messages"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds one poll run.
const DefaultBatchSize = 50

var deliveredMarkers = []string{"delivered", "shipment delivered", "consignment delivered"}

// IsDelivered reports whether a provider status text means the shipment was delivered.
func IsDelivered(status string) bool {
	s := strings.ToLower(status)
	for _, m := range deliveredMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// SnapshotStore is what the poller reads and writes.
type SnapshotStore interface {
	ListUndeliveredSnapshots(ctx context.Context, limit int) ([]models.TrackingSnapshot, error)
	ApplyStatusChange(ctx context.Context, upd models.SnapshotUpdate) (bool, error)
}

// Publisher emits a TrackingUpdated message for each applied change.
type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

// RateLimiter counts calls per key within a window and reports whether the call is allowed.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Recorder receives one observation per applied status change.
type Recorder interface {
	RecordTrackingChange(delivered bool)
}

// SyncResult summarizes one poll run.
type SyncResult struct {
	Seen      int `json:"seen"`
	Changed   int `json:"changed"`
	Delivered int `json:"delivered"`
	Skipped   int `json:"skipped"`
}

// Poller refreshes undelivered tracking snapshots from the courier.
type Poller struct {
	courier shipper.Courier
	store   SnapshotStore
	clock   clock.Clock
	logger  *otelzap.Logger

	publisher Publisher
	topic     string
	limiter   RateLimiter
	perMinute int64
	recorder  Recorder

	interval  time.Duration
	batchSize int

	triggerCh chan struct{}

	startedAt           time.Time
	lastRunUnixNano     atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalRuns           atomic.Int64
	totalSeen           atomic.Int64
	totalChanged        atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

// NewPoller creates a poller with a 30 minute interval and the default batch size.
func NewPoller(courier shipper.Courier, store SnapshotStore, clk clock.Clock, logger *otelzap.Logger) *Poller {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Poller{
		courier:   courier,
		store:     store,
		clock:     clk,
		logger:    logger,
		interval:  30 * time.Minute,
		batchSize: DefaultBatchSize,
		triggerCh: make(chan struct{}, 1),
		startedAt: clk.Now(),
	}
}

// WithSettings overrides the poll interval and batch size. Non-positive values keep the defaults.
func (p *Poller) WithSettings(interval time.Duration, batchSize int) *Poller {
	if interval > 0 {
		p.interval = interval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	return p
}

// WithPublisher publishes a TrackingUpdated message to topic for every applied change.
func (p *Poller) WithPublisher(pub Publisher, topic string) *Poller {
	p.publisher = pub
	p.topic = topic
	return p
}

// WithRateLimit caps provider tracking calls per minute. Snapshots over the
// cap are skipped until the next run.
func (p *Poller) WithRateLimit(rl RateLimiter, perMinute int) *Poller {
	if rl != nil && perMinute > 0 {
		p.limiter = rl
		p.perMinute = int64(perMinute)
	}
	return p
}

// WithRecorder attaches a metrics recorder.
func (p *Poller) WithRecorder(r Recorder) *Poller {
	p.recorder = r
	return p
}

// SyncOnce polls up to limit undelivered snapshots; limit <= 0 uses the
// configured batch size. A failing snapshot is skipped and never aborts the run.
func (p *Poller) SyncOnce(ctx context.Context, limit int) (*SyncResult, error) {
	if limit <= 0 {
		limit = p.batchSize
	}
	p.lastRunUnixNano.Store(p.clock.Now().UnixNano())
	p.totalRuns.Add(1)

	snapshots, err := p.store.ListUndeliveredSnapshots(ctx, limit)
	if err != nil {
		p.setError(err)
		return nil, err
	}

	res := &SyncResult{Seen: len(snapshots)}
	for i := range snapshots {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		changed, delivered, err := p.syncOne(ctx, &snapshots[i])
		switch {
		case err != nil:
			res.Skipped++
			p.totalErrors.Add(1)
			p.setError(err)
			p.logger.Ctx(ctx).Warn("Tracking sync skipped snapshot",
				zap.String("order", snapshots[i].OrderName),
				zap.String("tracking_number", snapshots[i].TrackingNumber),
				zap.Error(err),
			)
		case changed:
			res.Changed++
			if delivered {
				res.Delivered++
			}
		}
	}

	p.totalSeen.Add(int64(res.Seen))
	p.totalChanged.Add(int64(res.Changed))
	p.logger.Ctx(ctx).Info("Tracking sync finished",
		zap.Int("seen", res.Seen),
		zap.Int("changed", res.Changed),
		zap.Int("delivered", res.Delivered),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (p *Poller) syncOne(ctx context.Context, sn *models.TrackingSnapshot) (changed, delivered bool, err error) {
	if p.limiter != nil {
		key := "courierbridge:rl:" + p.courier.Name() + ":" + p.clock.Now().UTC().Format("200601021504")
		allowed, _, err := p.limiter.Allow(ctx, key, p.perMinute, 70*time.Second)
		if err != nil {
			return false, false, err
		}
		if !allowed {
			return false, false, shipper.ErrRateLimitExceeded
		}
	}

	status, err := p.courier.TrackPacket(ctx, sn.TrackingNumber)
	if err != nil {
		return false, false, err
	}
	if status == sn.CurrentStatus {
		return false, false, nil
	}

	now := p.clock.Now()
	delivered = IsDelivered(status)
	appended, err := p.store.ApplyStatusChange(ctx, models.SnapshotUpdate{
		SnapshotID:     sn.ID,
		OrderName:      sn.OrderName,
		TrackingNumber: sn.TrackingNumber,
		Status:         status,
		Delivered:      delivered,
		At:             now,
		Event: &models.TrackingEvent{
			OrderName:      sn.OrderName,
			TrackingNumber: sn.TrackingNumber,
			StatusText:     status,
			EventTime:      now,
			Source:         models.EventSource,
		},
	})
	if err != nil {
		return false, false, err
	}

	if p.recorder != nil {
		p.recorder.RecordTrackingChange(delivered)
	}
	p.logger.Ctx(ctx).Debug("Tracking status changed",
		zap.String("order", sn.OrderName),
		zap.String("from", sn.CurrentStatus),
		zap.String("to", status),
		zap.Bool("event_appended", appended),
	)

	if p.publisher != nil {
		msg := messages.TrackingUpdated{
			OrderName:      sn.OrderName,
			TrackingNumber: sn.TrackingNumber,
			Status:         status,
			Delivered:      delivered,
			CheckedAt:      now,
		}
		if err := p.publisher.PublishJSON(ctx, p.topic, sn.OrderName, msg); err != nil {
			// The change is committed; a lost notification is not retried.
			p.logger.Ctx(ctx).Warn("Failed to publish tracking update",
				zap.String("order", sn.OrderName), zap.Error(err))
		}
	}
	return true, delivered, nil
}

// Trigger forces an immediate poll run (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(p.clock.Now().UnixNano())
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Run polls on every interval tick and on Trigger until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-p.triggerCh:
		}
		if _, err := p.SyncOnce(ctx, 0); err != nil && ctx.Err() == nil {
			p.logger.Ctx(ctx).Error("Tracking sync failed", zap.Error(err))
		}
	}
}

// Stats are cumulative counters since the poller was created.
type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalRuns     int64      `json:"totalRuns"`
	TotalSeen     int64      `json:"totalSeen"`
	TotalChanged  int64      `json:"totalChanged"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

// Stats returns a snapshot of the poller counters.
func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:    p.startedAt.UTC(),
		TotalRuns:    p.totalRuns.Load(),
		TotalSeen:    p.totalSeen.Load(),
		TotalChanged: p.totalChanged.Load(),
		TotalErrors:  p.totalErrors.Load(),
	}
	if n := p.lastRunUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastRunAt = &t
	}
	if n := p.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func (p *Poller) setError(err error) {
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}
