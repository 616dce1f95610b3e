package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Booking outcomes reported to the Recorder.
const (
	OutcomeBooked   = "booked"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// ProviderTimeout bounds the provider call and the writes that record its
// outcome. Both run detached from the caller's cancellation.
const ProviderTimeout = 30 * time.Second

// Recorder receives one booking outcome per attempt.
type Recorder interface {
	RecordBooking(outcome string)
}

// Result is returned for a successful booking.
type Result struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"cn_number"`
	SlipLink       string `json:"slip_link"`
	ShipmentID     string `json:"shipment"`
}

// Coordinator books one order at a time against the courier.
type Coordinator struct {
	courier  shipper.Courier
	builder  *Builder
	store    Store
	locker   Locker
	clock    clock.Clock
	logger   *otelzap.Logger
	recorder Recorder
}

// CoordinatorConfig wires a Coordinator.
type CoordinatorConfig struct {
	Courier  shipper.Courier
	Store    Store
	Areas    AreaLookup
	Settings Settings
	Locker   Locker
	Clock    clock.Clock
	Logger   *otelzap.Logger
	Recorder Recorder
}

// NewCoordinator creates a Coordinator. A nil Locker falls back to a LocalLocker.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Locker == nil {
		cfg.Locker = NewLocalLocker()
	}
	if cfg.Logger == nil {
		cfg.Logger = otelzap.New(zap.NewNop())
	}
	return &Coordinator{
		courier:  cfg.Courier,
		builder:  NewBuilder(cfg.Store, cfg.Areas, cfg.Settings, cfg.Clock),
		store:    cfg.Store,
		locker:   cfg.Locker,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
	}
}

// Book builds, submits and records the booking for orderName.
func (c *Coordinator) Book(ctx context.Context, orderName string) (*Result, error) {
	if orderName == "" {
		return nil, shipper.NewValidationError("delivery_note is required")
	}

	if err := c.courier.Preflight(ctx); err != nil {
		c.record(OutcomeRejected)
		return nil, fmt.Errorf("Leopards booking failed: %w", err)
	}

	unlock, ok, err := c.locker.TryLock(ctx, orderName)
	if err != nil {
		c.record(OutcomeRejected)
		return nil, fmt.Errorf("acquiring order lock: %w", err)
	}
	if !ok {
		c.record(OutcomeRejected)
		return nil, shipper.NewValidationError(fmt.Sprintf("booking already in progress for %s", orderName))
	}
	defer unlock()

	start := time.Now()
	res, sh, err := c.book(ctx, orderName)
	if err != nil {
		fctx, cancel := detach(ctx)
		c.markFailed(fctx, orderName, sh, err)
		cancel()
		c.record(OutcomeFailed)
		c.logger.Ctx(ctx).Error("Booking failed",
			zap.String("order", orderName),
			zap.String("kind", string(shipper.KindOf(err))),
			zap.Error(err),
		)
		return nil, fmt.Errorf("Leopards booking failed: %w", err)
	}

	c.record(OutcomeBooked)
	c.logger.Ctx(ctx).Info("Booked shipment",
		zap.String("order", orderName),
		zap.String("tracking_number", res.TrackingNumber),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (c *Coordinator) book(ctx context.Context, orderName string) (*Result, *models.Shipment, error) {
	order, err := c.store.GetOrder(ctx, orderName)
	if err == nil && SkipReason(order) == ReasonAlreadyBooked {
		return nil, nil, shipper.NewValidationError("Already booked")
	}

	sh, order, err := c.builder.Build(ctx, orderName)
	if err != nil {
		return nil, nil, err
	}

	req, err := c.builder.Payload(ctx, sh, order)
	if err != nil {
		return nil, sh, err
	}

	// Once the request is sent the provider may hold a booking, so the call
	// and its bookkeeping must not be abandoned halfway.
	ctx, cancel := detach(ctx)
	defer cancel()

	booked, err := c.courier.Book(ctx, req)
	if err != nil {
		return nil, sh, err
	}
	if booked.TrackingNumber == "" {
		return nil, sh, shipper.NewAPIError(c.courier.Name(), "MISSING_TRACK_NUMBER", "track_number missing in booking response")
	}

	if !sh.CanTransition(models.ShipmentBooked) {
		return nil, sh, fmt.Errorf("shipment %s cannot move from %s to Booked", sh.ID, sh.Status)
	}
	next := *sh
	next.ResponsePayload = indentRaw(booked.Raw)
	next.TrackingNumber = booked.TrackingNumber
	next.LabelLink = booked.SlipLink
	next.LastError = ""
	next.Status = models.ShipmentBooked
	next.UpdatedAt = c.clock.Now()

	err = c.store.SaveBooking(ctx, &next, models.BookingMirror{
		ConsignmentNumber:  next.TrackingNumber,
		SlipLink:           next.LabelLink,
		BookingStatus:      string(models.ShipmentBooked),
		LastTrackingStatus: string(models.ShipmentBooked),
	})
	if err != nil {
		sh.ResponsePayload = next.ResponsePayload
		return nil, sh, fmt.Errorf("saving booked shipment (track number %s): %w", next.TrackingNumber, err)
	}
	sh = &next

	return &Result{
		Status:         string(models.ShipmentBooked),
		TrackingNumber: sh.TrackingNumber,
		SlipLink:       sh.LabelLink,
		ShipmentID:     sh.ID,
	}, sh, nil
}

// markFailed records the failure on the order's shipment, when one exists and
// is not already Booked. The order itself is left untouched.
func (c *Coordinator) markFailed(ctx context.Context, orderName string, sh *models.Shipment, cause error) {
	if sh == nil {
		existing, err := c.store.GetShipmentByOrder(ctx, orderName)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				c.logger.Ctx(ctx).Warn("Failed to load shipment for failure record",
					zap.String("order", orderName), zap.Error(err))
			}
			return
		}
		sh = existing
	}
	if !sh.CanTransition(models.ShipmentFailed) && sh.Status != models.ShipmentFailed {
		return
	}

	sh.Status = models.ShipmentFailed
	sh.LastError = truncate(cause.Error(), models.MaxLastErrorLen)
	sh.UpdatedAt = c.clock.Now()
	if err := c.store.UpdateShipment(ctx, sh); err != nil {
		c.logger.Ctx(ctx).Error("Failed to record booking failure",
			zap.String("order", orderName), zap.Error(err))
	}
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), ProviderTimeout)
}

func (c *Coordinator) record(outcome string) {
	if c.recorder != nil {
		c.recorder.RecordBooking(outcome)
	}
}

func indentRaw(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
