// Package bulk queues multi-order booking jobs and books them one order at a
// time with a fixed delay between provider calls.
package bulk

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/broker/messages"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultDelay separates consecutive bookings in a job.
const DefaultDelay = time.Second

// FailedMessage is reported for every failed order; details go to the log.
const FailedMessage = "See Error Log"

// Booker books a single order.
type Booker interface {
	Book(ctx context.Context, orderName string) (*booking.Result, error)
}

// OrderReader loads an order for the eligibility check.
type OrderReader interface {
	GetOrder(ctx context.Context, name string) (*models.Order, error)
}

// Publisher sends a JSON message to a topic.
type Publisher interface {
	PublishJSON(ctx context.Context, topic, key string, v any) error
}

// WorkerConfig wires a Worker. Zero Clock, Delay and Logger take defaults.
type WorkerConfig struct {
	Booker OrderBooker
	Clock  clock.Clock
	Delay  time.Duration
	Logger *otelzap.Logger
	// Notifier receives the completion report on DoneTopic. Without one the
	// report is logged.
	Notifier  Publisher
	DoneTopic string
}

// OrderBooker books orders and reads them for eligibility checks.
type OrderBooker interface {
	Booker
	OrderReader
}

// Worker processes one job at a time, one order at a time.
type Worker struct {
	booker    OrderBooker
	clock     clock.Clock
	delay     time.Duration
	logger    *otelzap.Logger
	notifier  Publisher
	doneTopic string
}

// NewWorker creates a Worker from cfg.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = otelzap.New(zap.NewNop())
	}
	return &Worker{
		booker:    cfg.Booker,
		clock:     cfg.Clock,
		delay:     cfg.Delay,
		logger:    cfg.Logger,
		notifier:  cfg.Notifier,
		doneTopic: cfg.DoneTopic,
	}
}

// Process books every order in the job and sends one completion report.
// A failing order never stops the job; only context cancellation does.
func (w *Worker) Process(ctx context.Context, job messages.BulkBookingRequested) (*messages.BulkBookingDone, error) {
	report := &messages.BulkBookingDone{
		JobID:   job.JobID,
		Booked:  []messages.BookedOrder{},
		Skipped: []messages.SkippedOrder{},
		Failed:  []messages.FailedOrder{},
	}

	for _, name := range job.Orders {
		order, err := w.booker.GetOrder(ctx, name)
		if err != nil {
			w.logger.Ctx(ctx).Error("Bulk booking could not load order",
				zap.String("job_id", job.JobID), zap.String("order", name), zap.Error(err))
			report.Failed = append(report.Failed, messages.FailedOrder{Order: name, Error: FailedMessage})
			continue
		}
		if reason := booking.SkipReason(order); reason != "" {
			report.Skipped = append(report.Skipped, messages.SkippedOrder{Order: name, Reason: reason})
			continue
		}

		if err := w.clock.Sleep(ctx, w.delay); err != nil {
			return report, err
		}

		res, err := w.booker.Book(ctx, name)
		if err != nil {
			w.logger.Ctx(ctx).Error("Bulk booking failed for order",
				zap.String("job_id", job.JobID), zap.String("order", name), zap.Error(err))
			report.Failed = append(report.Failed, messages.FailedOrder{Order: name, Error: FailedMessage})
			continue
		}
		report.Booked = append(report.Booked, messages.BookedOrder{Order: name, ConsignmentNumber: res.TrackingNumber})
	}

	report.FinishedAt = w.clock.Now()
	w.notify(ctx, report)
	return report, nil
}

func (w *Worker) notify(ctx context.Context, report *messages.BulkBookingDone) {
	fields := []zap.Field{
		zap.String("job_id", report.JobID),
		zap.Int("booked", len(report.Booked)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)),
	}
	if w.notifier == nil {
		w.logger.Ctx(ctx).Info("Bulk booking finished", fields...)
		return
	}
	if err := w.notifier.PublishJSON(ctx, w.doneTopic, report.JobID, report); err != nil {
		w.logger.Ctx(ctx).Error("Failed to publish bulk booking report", append(fields, zap.Error(err))...)
		return
	}
	w.logger.Ctx(ctx).Debug("Published bulk booking report", fields...)
}

// HandleMessage processes one BulkBookingRequested message read from Kafka.
// Undecodable messages are dropped so they cannot block the partition.
func (w *Worker) HandleMessage(ctx context.Context, key, value []byte) error {
	var job messages.BulkBookingRequested
	if err := json.Unmarshal(value, &job); err != nil {
		w.logger.Ctx(ctx).Error("Dropping malformed bulk booking message",
			zap.ByteString("key", key), zap.Error(err))
		return nil
	}
	_, err := w.Process(ctx, job)
	return err
}
