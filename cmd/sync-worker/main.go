package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/timetracker"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/postgresql"
	reconcileService "github.com/cmlabs-hris/hris-attendance-go/internal/service/reconcile"
	"github.com/cmlabs-hris/hris-attendance-go/internal/worker"
)

const version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("Sync worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if cfg.SQS.QueueURL == "" {
		return errors.New("SYNC_QUEUE_URL is required for the sync worker")
	}

	logger.Setup(logger.Options{
		App:     cfg.Telemetry.ServiceName + "-worker",
		Version: version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryCfg := cfg.TelemetryConfig()
	telemetryCfg.ServiceName += "-worker"
	shutdownTracer, err := telemetry.InitTracer(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(flushCtx)
	}()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()
	slog.Info("Successfully connected to the database")

	sqsClient, err := worker.NewSQSClient(ctx, worker.AWSConfig{Region: cfg.SQS.Region, Endpoint: cfg.SQS.Endpoint})
	if err != nil {
		return err
	}

	syncSvc := reconcileService.NewSyncService(
		postgresql.NewTransactor(db),
		postgresql.NewAttendanceRepository(db),
		postgresql.NewEmployeeRepository(db),
		timetracker.NewClient(timetracker.Config{
			BaseURL:   cfg.TimeTracker.BaseURL,
			APIKey:    cfg.TimeTracker.APIKey,
			CompanyID: cfg.TimeTracker.CompanyID,
			Timeout:   cfg.TimeTracker.Timeout,
		}),
	)

	app := worker.NewWorker(sqsClient, cfg.SQS.QueueURL, worker.NewSyncProcessor(syncSvc))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Start(gctx)
	})

	err = g.Wait()
	slog.Info("Worker exited gracefully")
	return err
}
