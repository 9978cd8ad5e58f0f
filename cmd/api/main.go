package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/logger"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/timetracker"
	"github.com/cmlabs-hris/hris-attendance-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-go/internal/service/attendance"
	reconcileService "github.com/cmlabs-hris/hris-attendance-go/internal/service/reconcile"
	reportService "github.com/cmlabs-hris/hris-attendance-go/internal/service/report"
	"github.com/cmlabs-hris/hris-attendance-go/internal/worker"
)

const version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.Setup(logger.Options{
		App:     cfg.Telemetry.ServiceName,
		Version: version,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.TelemetryConfig())
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			slog.Error("Failed to flush traces", "error", err)
		}
	}()

	normalizer, err := cfg.Normalizer()
	if err != nil {
		return fmt.Errorf("invalid ORG_UTC_OFFSET: %w", err)
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	attendanceRepo := postgresql.NewAttendanceRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	transactor := postgresql.NewTransactor(db)

	provider := timetracker.NewClient(timetracker.Config{
		BaseURL:   cfg.TimeTracker.BaseURL,
		APIKey:    cfg.TimeTracker.APIKey,
		CompanyID: cfg.TimeTracker.CompanyID,
		Timeout:   cfg.TimeTracker.Timeout,
	})

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	attendanceSvc := attendanceService.NewAttendanceService(transactor, attendanceRepo, employeeRepo, normalizer)
	syncSvc := reconcileService.NewSyncService(transactor, attendanceRepo, employeeRepo, provider)
	reportSvc := reportService.NewReportService(attendanceRepo, employeeRepo, normalizer)

	var enqueuer appHTTP.SyncEnqueuer
	if cfg.SQS.QueueURL != "" {
		sqsClient, err := worker.NewSQSClient(ctx, worker.AWSConfig{Region: cfg.SQS.Region, Endpoint: cfg.SQS.Endpoint})
		if err != nil {
			return err
		}
		enqueuer = worker.NewPublisher(sqsClient, cfg.SQS.QueueURL)
	}

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Logger:         log,
			AllowedOrigins: cfg.App.CORSOrigins,
			ServiceName:    cfg.Telemetry.ServiceName,
		},
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewSyncHandler(syncSvc, enqueuer, normalizer),
		appHTTP.NewReportHandler(reportSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		slog.Info("Shutting down server...")
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Sync.Enabled {
		scheduler := cron.NewScheduler(gctx)
		cron.NewSyncJobs(syncSvc, normalizer, cron.SyncJobConfig{
			Interval:       cfg.Sync.Interval,
			LookbackDays:   cfg.Sync.LookbackDays,
			LookbackWindow: cfg.Sync.LookbackWindow,
		}).RegisterJobs(scheduler)
		scheduler.Start()
		g.Go(scheduler.Wait)
	}

	return g.Wait()
}
