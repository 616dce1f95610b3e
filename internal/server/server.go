package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/bulk"
	"github.com/tournevent/courierbridge/internal/cities"
	"github.com/tournevent/courierbridge/internal/slips"
	"github.com/tournevent/courierbridge/internal/tracking"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type Booker interface {
	Book(ctx context.Context, orderName string) (*booking.Result, error)
}

type BulkEnqueuer interface {
	Enqueue(ctx context.Context, orders []string) (*bulk.Queued, error)
}

type SlipService interface {
	SlipLink(ctx context.Context, orderName string) (string, error)
	BulkLabels(ctx context.Context, orders []string) (*slips.Labels, error)
	GeneratePackingSlip(ctx context.Context, shipmentID string) (*slips.PackingSlip, error)
}

type CitySyncer interface {
	Sync(ctx context.Context) (*cities.Result, error)
}

type Poller interface {
	SyncOnce(ctx context.Context, limit int) (*tracking.SyncResult, error)
	Trigger()
	Stats() tracking.Stats
}

type Backfiller interface {
	Backfill(ctx context.Context, limit int) (*tracking.BackfillResult, error)
}

type Cleaner interface {
	CleanSnapshots(ctx context.Context, days int) (int64, error)
	CleanEvents(ctx context.Context, days int) (int64, error)
}

// Config holds server configuration.
type Config struct {
	Port int
}

// Deps are the operations exposed over HTTP. Ready, when set, backs /readyz.
type Deps struct {
	Booker     Booker
	Bulk       BulkEnqueuer
	Slips      SlipService
	Cities     CitySyncer
	Poller     Poller
	Backfiller Backfiller
	Cleaner    Cleaner
	Ready      func(ctx context.Context) error
}

// Server is the HTTP surface of courierbridge.
type Server struct {
	port   int
	deps   Deps
	logger *otelzap.Logger
}

func New(cfg Config, deps Deps, logger *otelzap.Logger) *Server {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Server{port: cfg.Port, deps: deps, logger: logger}
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stats", s.handleStats)
	r.Post("/trigger", s.handleTrigger)

	r.Post("/bookings/bulk", s.handleBulkBook)
	r.Post("/bookings/{order}", s.handleBook)
	r.Get("/orders/{order}/slip", s.handleSlipLink)
	r.Post("/labels", s.handleLabels)
	r.Post("/shipments/{id}/packing-slip", s.handlePackingSlip)

	r.Post("/cities/sync", s.handleCitySync)
	r.Post("/tracking/sync", s.handleTrackingSync)
	r.Post("/tracking/backfill", s.handleBackfill)
	r.Post("/tracking/cleanup", s.handleCleanup)

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
