package tracking

import (
	"context"
	"fmt"

	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultBackfillLimit bounds one backfill run.
const DefaultBackfillLimit = 200

type BackfillStore interface {
	ListBookedOrders(ctx context.Context, limit int) ([]models.BookedOrder, error)
	HasSnapshot(ctx context.Context, orderName string) (bool, error)
	InsertSnapshot(ctx context.Context, s *models.TrackingSnapshot) error
}

type BackfillResult struct {
	Created         int `json:"created"`
	SkippedExisting int `json:"skipped_existing"`
	TotalSeen       int `json:"total_seen"`
}

// Backfiller creates the first snapshot for booked orders that have none.
type Backfiller struct {
	courier shipper.Courier
	store   BackfillStore
	clock   clock.Clock
	logger  *otelzap.Logger
}

func NewBackfiller(courier shipper.Courier, store BackfillStore, clk clock.Clock, logger *otelzap.Logger) *Backfiller {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Backfiller{courier: courier, store: store, clock: clk, logger: logger}
}

// Backfill scans up to limit booked orders. A provider failure records the
// snapshot as Pending.
func (b *Backfiller) Backfill(ctx context.Context, limit int) (*BackfillResult, error) {
	if limit <= 0 {
		limit = DefaultBackfillLimit
	}

	orders, err := b.store.ListBookedOrders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing booked orders: %w", err)
	}

	res := &BackfillResult{TotalSeen: len(orders)}
	for _, o := range orders {
		exists, err := b.store.HasSnapshot(ctx, o.Name)
		if err != nil {
			return res, fmt.Errorf("checking snapshot for %s: %w", o.Name, err)
		}
		if exists {
			res.SkippedExisting++
			continue
		}

		status, err := b.courier.TrackPacket(ctx, o.ConsignmentNumber)
		if err != nil {
			b.logger.Ctx(ctx).Warn("Tracking lookup failed during backfill",
				zap.String("order", o.Name), zap.Error(err))
			status = shipper.PendingStatus
		}

		sn := &models.TrackingSnapshot{
			OrderName:      o.Name,
			TrackingNumber: o.ConsignmentNumber,
			CurrentStatus:  status,
			IsDelivered:    IsDelivered(status),
			LastUpdated:    b.clock.Now(),
		}
		if err := b.store.InsertSnapshot(ctx, sn); err != nil {
			return res, fmt.Errorf("creating snapshot for %s: %w", o.Name, err)
		}
		res.Created++
	}

	b.logger.Ctx(ctx).Info("Tracking backfill finished",
		zap.Int("created", res.Created),
		zap.Int("skipped_existing", res.SkippedExisting),
		zap.Int("total_seen", res.TotalSeen),
	)
	return res, nil
}
