package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/tournevent/courierbridge/internal/booking"
	"github.com/tournevent/courierbridge/internal/broker/kafka"
	"github.com/tournevent/courierbridge/internal/bulk"
	"github.com/tournevent/courierbridge/internal/cache/rediscache"
	"github.com/tournevent/courierbridge/internal/cities"
	"github.com/tournevent/courierbridge/internal/clock"
	"github.com/tournevent/courierbridge/internal/config"
	"github.com/tournevent/courierbridge/internal/credentials"
	"github.com/tournevent/courierbridge/internal/slips"
	"github.com/tournevent/courierbridge/internal/storage"
	"github.com/tournevent/courierbridge/internal/storage/pgstore"
	"github.com/tournevent/courierbridge/internal/storage/sqlitestore"
	"github.com/tournevent/courierbridge/internal/telemetry"
	"github.com/tournevent/courierbridge/internal/tracking"
	"github.com/tournevent/courierbridge/pkg/shipper/leopards"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type pingStore interface {
	storage.Store
	Ping(ctx context.Context) error
}

// app holds every wired component. Optional backends are nil when not configured.
type app struct {
	cfg     *config.Config
	logger  *otelzap.Logger
	metrics *telemetry.Metrics

	store    pingStore
	redis    *redis.Client
	producer *kafka.Producer

	courier     *leopards.Client
	coordinator *booking.Coordinator
	bulk        *bulk.Service
	worker      *bulk.Worker
	localQueue  *bulk.LocalQueue
	slips       *slips.Service
	cities      *cities.Syncer
	poller      *tracking.Poller
	backfiller  *tracking.Backfiller
	cleaner     *tracking.Cleaner
}

// orderBooker pairs the coordinator with the store for bulk eligibility checks.
type orderBooker struct {
	*booking.Coordinator
	storage.OrderStore
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel,
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.Version),
	)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return otel.Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
}

func initStore(ctx context.Context, cfg *config.Config) (pingStore, error) {
	if cfg.DatabaseURL != "" {
		st, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return st, nil
	}
	st, err := sqlitestore.New(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	return st, nil
}

func initPasswords(cfg *config.Config) leopards.PasswordSource {
	s := cfg.Leopards
	if s.APIPasswordSealed != "" {
		return credentials.NewSealed(s.APIPasswordSealed, s.AgeIdentity, s.AgeIdentityFile)
	}
	return credentials.Static(s.APIPassword)
}

func bookingSettings(s config.Settings) booking.Settings {
	return booking.Settings{
		DefaultOriginCity:  s.DefaultOriginCity,
		DefaultPaymentMode: s.DefaultPaymentMode,
		DefaultPieces:      s.DefaultPieces,
		DefaultServiceType: s.DefaultServiceType,
		DefaultProductType: s.DefaultProductType,
		ShipmentMode:       s.ShipmentMode,
		ShipperName:        s.ShipperName,
		ShipperPhone:       s.ShipperPhone,
		ShipperAddress:     s.ShipperAddress,
	}
}

// buildApp connects the store and the optional Redis and Kafka backends and
// wires every service on top of them.
func buildApp(ctx context.Context, cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) (*app, error) {
	st, err := initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: telemetry.NewMetrics(),
		store:   st,
	}
	clk := clock.Real()

	a.courier = leopards.New(leopards.Config{
		Enabled:     cfg.Leopards.Enabled,
		Environment: cfg.Leopards.Environment,
		BaseURL:     cfg.Leopards.BaseURL,
		APIKey:      cfg.Leopards.APIKey,
		Timeout:     cfg.Leopards.Timeout,
		UseMock:     cfg.Leopards.UseMock,
	}, initPasswords(cfg), logger, tracer).WithRecorder(a.metrics)

	var (
		areas     booking.AreaLookup = st
		locker    booking.Locker
		areaCache cities.Invalidator
	)
	a.poller = tracking.NewPoller(a.courier, st, clk, logger).
		WithSettings(cfg.PollInterval, cfg.PollBatchSize).
		WithRecorder(a.metrics)

	if cfg.RedisEnabled() {
		a.redis = rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cache := rediscache.NewServiceAreaCache(rediscache.New(a.redis), cfg.ServiceAreaCacheTTL)
		areas = cities.NewCachedLookup(st, cache, logger)
		areaCache = cache
		locker = rediscache.NewOrderLocker(a.redis, cfg.OrderLockTTL)
		a.poller.WithRateLimit(rediscache.NewRateLimiter(a.redis), cfg.PollRateLimitPerMinute)
	}

	a.coordinator = booking.NewCoordinator(booking.CoordinatorConfig{
		Courier:  a.courier,
		Store:    st,
		Areas:    areas,
		Settings: bookingSettings(cfg.Leopards),
		Locker:   locker,
		Clock:    clk,
		Logger:   logger,
		Recorder: a.metrics,
	})

	workerCfg := bulk.WorkerConfig{
		Booker:    orderBooker{Coordinator: a.coordinator, OrderStore: st},
		Clock:     clk,
		Delay:     cfg.BulkDelay,
		Logger:    logger,
		DoneTopic: cfg.BulkDoneTopic,
	}

	var queue bulk.Queue
	if cfg.KafkaEnabled() {
		a.producer = kafka.NewProducer(cfg.KafkaBrokers)
		a.poller.WithPublisher(a.producer, cfg.TrackingTopic)
		workerCfg.Notifier = a.producer
		queue = bulk.NewKafkaQueue(a.producer, cfg.BulkRequestedTopic)
	} else {
		a.localQueue = bulk.NewLocalQueue(cfg.BulkQueueSize)
		queue = a.localQueue
	}
	a.worker = bulk.NewWorker(workerCfg)
	a.bulk = bulk.NewService(queue, clk)

	a.slips = slips.NewService(a.courier, st, cfg.SlipDir, clk, logger)
	a.cities = cities.NewSyncer(a.courier, st, areaCache, logger)
	a.backfiller = tracking.NewBackfiller(a.courier, st, clk, logger)
	a.cleaner = tracking.NewCleaner(st, clk, logger).WithRecorder(a.metrics)

	return a, nil
}

// ready reports whether the store and, when configured, Redis are reachable.
func (a *app) ready(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("Failed to close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	a.store.Close()
}
