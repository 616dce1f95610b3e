package bulk_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/broker/messages"
	"github.com/tournevent/courierbridge/internal/bulk"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/models"
	"github.com/tournevent/courierbridge/pkg/shipper"
)

type fakeBooker struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	fail   map[string]bool
	booked []string
}

func (b *fakeBooker) GetOrder(ctx context.Context, name string) (*models.Order, error) {
	o, ok := b.orders[name]
	if !ok {
		return nil, fmt.Errorf("select order: %w", models.ErrNotFound)
	}
	return o, nil
}

func (b *fakeBooker) Book(ctx context.Context, name string) (*booking.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail[name] {
		return nil, shipper.NewAPIError("leopards", "BOOKING_FAILED", "rejected")
	}
	b.booked = append(b.booked, name)
	return &booking.Result{Status: "Booked", TrackingNumber: "CN-" + name}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	values []any
	err    error
}

func (p *fakePublisher) PublishJSON(ctx context.Context, topic, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.values = append(p.values, v)
	return p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.values)
}

func newBooker() *fakeBooker {
	return &fakeBooker{
		orders: map[string]*models.Order{
			"DN-1": {Name: "DN-1", Submitted: true},
			"DN-2": {Name: "DN-2"},
			"DN-3": {Name: "DN-3", Submitted: true, BookingStatus: "Booked"},
			"DN-4": {Name: "DN-4", Submitted: true},
			"DN-5": {Name: "DN-5", Submitted: true, BookingStatus: "Failed"},
		},
		fail: map[string]bool{"DN-4": true},
	}
}

func TestWorker_Process(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	b := newBooker()
	pub := &fakePublisher{}
	w := bulk.NewWorker(bulk.WorkerConfig{Booker: b, Clock: clk, Notifier: pub, DoneTopic: "done"})

	report, err := w.Process(context.Background(), messages.BulkBookingRequested{
		JobID:  "job-1",
		Orders: []string{"DN-1", "DN-2", "DN-3", "DN-4", "DN-404", "DN-5"},
	})
	require.NoError(t, err)

	assert.Equal(t, []messages.BookedOrder{
		{Order: "DN-1", ConsignmentNumber: "CN-DN-1"},
		{Order: "DN-5", ConsignmentNumber: "CN-DN-5"},
	}, report.Booked)
	assert.Equal(t, []messages.SkippedOrder{
		{Order: "DN-2", Reason: booking.ReasonNotSubmitted},
		{Order: "DN-3", Reason: booking.ReasonAlreadyBooked},
	}, report.Skipped)
	assert.Equal(t, []messages.FailedOrder{
		{Order: "DN-4", Error: bulk.FailedMessage},
		{Order: "DN-404", Error: bulk.FailedMessage},
	}, report.Failed)

	// One delay before each provider call, none for skipped orders.
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clk.Sleeps())
	assert.Equal(t, []string{"DN-1", "DN-5"}, b.booked)

	require.Equal(t, 1, pub.count())
	assert.Equal(t, []string{"done"}, pub.topics)
	assert.Equal(t, report, pub.values[0])
	assert.Equal(t, clk.Now(), report.FinishedAt)
}

func TestWorker_Process_NotifierErrorDoesNotFail(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	w := bulk.NewWorker(bulk.WorkerConfig{Booker: newBooker(), Clock: clock.Fake(time.Now()), Notifier: pub})

	report, err := w.Process(context.Background(), messages.BulkBookingRequested{JobID: "j", Orders: []string{"DN-1"}})
	require.NoError(t, err)
	assert.Len(t, report.Booked, 1)
}

func TestWorker_Process_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub := &fakePublisher{}
	w := bulk.NewWorker(bulk.WorkerConfig{Booker: newBooker(), Clock: clock.Fake(time.Now()), Notifier: pub})

	_, err := w.Process(ctx, messages.BulkBookingRequested{JobID: "j", Orders: []string{"DN-1"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, pub.count())
}

func TestWorker_HandleMessage(t *testing.T) {
	b := newBooker()
	pub := &fakePublisher{}
	w := bulk.NewWorker(bulk.WorkerConfig{Booker: b, Clock: clock.Fake(time.Now()), Notifier: pub})

	raw, err := json.Marshal(messages.BulkBookingRequested{JobID: "j", Orders: []string{"DN-1"}})
	require.NoError(t, err)
	require.NoError(t, w.HandleMessage(context.Background(), []byte("j"), raw))
	assert.Equal(t, []string{"DN-1"}, b.booked)

	require.NoError(t, w.HandleMessage(context.Background(), []byte("bad"), []byte("{not json")))
	assert.Equal(t, 1, pub.count())
}

func TestService_Enqueue(t *testing.T) {
	q := bulk.NewLocalQueue(1)
	svc := bulk.NewService(q, clock.Fake(time.Now()))
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, nil)
	require.ErrorIs(t, err, shipper.ErrValidation)
	assert.Equal(t, "No Delivery Notes selected", err.Error())

	_, err = svc.Enqueue(ctx, []string{" ", ""})
	require.ErrorIs(t, err, shipper.ErrValidation)

	res, err := svc.Enqueue(ctx, []string{"DN-1", " DN-2 "})
	require.NoError(t, err)
	assert.Equal(t, "queued", res.Status)
	assert.Equal(t, 2, res.Count)
	assert.NotEmpty(t, res.JobID)

	_, err = svc.Enqueue(ctx, []string{"DN-3"})
	assert.ErrorIs(t, err, bulk.ErrQueueFull)
}

func TestLocalQueue_Run(t *testing.T) {
	b := newBooker()
	pub := &fakePublisher{}
	w := bulk.NewWorker(bulk.WorkerConfig{Booker: b, Clock: clock.Fake(time.Now()), Notifier: pub})
	q := bulk.NewLocalQueue(4)
	svc := bulk.NewService(q, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, w) }()

	_, err := svc.Enqueue(ctx, []string{"DN-1"})
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, []string{"DN-5"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, []string{"DN-1", "DN-5"}, b.booked)
}

func TestKafkaQueue_Enqueue(t *testing.T) {
	pub := &fakePublisher{}
	svc := bulk.NewService(bulk.NewKafkaQueue(pub, "requested"), clock.Fake(time.Now()))

	res, err := svc.Enqueue(context.Background(), []string{"DN-1", "DN-2"})
	require.NoError(t, err)
	require.Equal(t, 1, pub.count())
	assert.Equal(t, "requested", pub.topics[0])
	job := pub.values[0].(messages.BulkBookingRequested)
	assert.Equal(t, res.JobID, job.JobID)
	assert.Equal(t, []string{"DN-1", "DN-2"}, job.Orders)
}
