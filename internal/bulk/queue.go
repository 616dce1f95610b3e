package bulk

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tournevent/courierbridge/internal/broker/messages"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/pkg/shipper"
	"go.uber.org/zap"
)

// ErrQueueFull is returned when the in-process queue cannot take another job.
var ErrQueueFull = errors.New("bulk booking queue is full")

// Queue accepts jobs for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, job messages.BulkBookingRequested) error
}

// Queued is the immediate answer to a bulk request.
type Queued struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	JobID  string `json:"job_id"`
}

// Service validates bulk requests and hands them to a Queue.
type Service struct {
	queue Queue
	clock clock.Clock
	newID func() string
}

func NewService(queue Queue, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{queue: queue, clock: clk, newID: uuid.NewString}
}

// Enqueue queues orders and returns without waiting for any booking.
func (s *Service) Enqueue(ctx context.Context, orders []string) (*Queued, error) {
	job, err := s.NewJob(orders)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}
	return &Queued{Status: "queued", Count: len(job.Orders), JobID: job.JobID}, nil
}

// NewJob validates orders and builds the job message.
func (s *Service) NewJob(orders []string) (messages.BulkBookingRequested, error) {
	names := make([]string, 0, len(orders))
	for _, o := range orders {
		if o = strings.TrimSpace(o); o != "" {
			names = append(names, o)
		}
	}
	if len(names) == 0 {
		return messages.BulkBookingRequested{}, shipper.NewValidationError("No Delivery Notes selected")
	}
	return messages.BulkBookingRequested{
		JobID:       s.newID(),
		Orders:      names,
		RequestedAt: s.clock.Now(),
	}, nil
}

// LocalQueue is a bounded in-process queue drained by Run.
type LocalQueue struct {
	jobs chan messages.BulkBookingRequested
}

func NewLocalQueue(size int) *LocalQueue {
	if size <= 0 {
		size = 64
	}
	return &LocalQueue{jobs: make(chan messages.BulkBookingRequested, size)}
}

func (q *LocalQueue) Enqueue(ctx context.Context, job messages.BulkBookingRequested) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Run processes queued jobs sequentially until ctx is done.
func (q *LocalQueue) Run(ctx context.Context, w *Worker) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			if _, err := w.Process(ctx, job); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Ctx(ctx).Error("Bulk booking job aborted", zap.String("job_id", job.JobID), zap.Error(err))
			}
		}
	}
}

// KafkaQueue publishes jobs to a topic consumed by Worker.HandleMessage.
type KafkaQueue struct {
	pub   Publisher
	topic string
}

func NewKafkaQueue(pub Publisher, topic string) *KafkaQueue {
	return &KafkaQueue{pub: pub, topic: topic}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job messages.BulkBookingRequested) error {
	return q.pub.PublishJSON(ctx, q.topic, job.JobID, job)
}
