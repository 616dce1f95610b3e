package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/courierbridge/internal/broker/kafka"
	"github.com/tournevent/courierbridge/internal/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "courierbridge",
	Short:   "Leopards courier bridge - booking, labels and tracking for fulfillment orders",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server, tracking poller, bulk worker and retention loop",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// withApp loads configuration, wires the application and runs fn with it.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(context.Background())
	}

	a, err := buildApp(ctx, cfg, logger, tracer)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), serve)
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	a.logger.Info("Starting courierbridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Bool("redis", cfg.RedisEnabled()),
		zap.Bool("kafka", cfg.KafkaEnabled()),
	)

	srv := server.New(server.Config{Port: cfg.Port}, server.Deps{
		Booker:     a.coordinator,
		Bulk:       a.bulk,
		Slips:      a.slips,
		Cities:     a.cities,
		Poller:     a.poller,
		Backfiller: a.backfiller,
		Cleaner:    a.cleaner,
		Ready:      a.ready,
	}, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error { return a.poller.Run(ctx) })
	g.Go(func() error {
		return a.cleaner.Run(ctx, cfg.RetentionInterval, cfg.SnapshotRetentionDays, cfg.EventRetentionDays)
	})
	g.Go(func() error {
		if a.localQueue != nil {
			return a.localQueue.Run(ctx, a.worker)
		}
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.BulkRequestedTopic, cfg.KafkaConsumerGroup)
		defer consumer.Close()
		return consumer.Consume(ctx, a.worker.HandleMessage)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
