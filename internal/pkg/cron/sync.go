package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
)

const ExternalSyncJobName = "external_attendance_sync"

type SyncJobConfig struct {
	Interval time.Duration
	// LookbackDays previous dates are synced while the local clock is
	// within LookbackWindow of midnight.
	LookbackDays   int
	LookbackWindow time.Duration
}

type SyncJobs struct {
	syncService attendance.SyncService
	normalizer  *civiltime.Normalizer
	cfg         SyncJobConfig
	now         func() time.Time
}

func NewSyncJobs(syncService attendance.SyncService, normalizer *civiltime.Normalizer, cfg SyncJobConfig) *SyncJobs {
	return &SyncJobs{
		syncService: syncService,
		normalizer:  normalizer,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (j *SyncJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(ExternalSyncJobName, j.cfg.Interval, j.SyncExternalAttendance)
}

// Dates returns the local dates due for syncing at now, newest first.
func (j *SyncJobs) Dates(now time.Time) []time.Time {
	today := j.normalizer.Today(now)
	dates := []time.Time{today}

	local := now.In(j.normalizer.Location())
	sinceMidnight := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute
	if sinceMidnight < j.cfg.LookbackWindow {
		for i := 1; i <= j.cfg.LookbackDays; i++ {
			dates = append(dates, today.AddDate(0, 0, -i))
		}
	}
	return dates
}

// SyncExternalAttendance syncs every due date. Each date runs under its own
// correlation id; a failed date does not stop the others.
func (j *SyncJobs) SyncExternalAttendance(ctx context.Context) error {
	slog.Info("Cron: Starting external attendance sync job")

	var errs []error
	for _, date := range j.Dates(j.now()) {
		runCtx := telemetry.WithCorrelationID(ctx, telemetry.NewCorrelationID())
		day := date.Format(civiltime.DateLayout)

		result, err := j.syncService.SyncDate(runCtx, date)
		if err != nil {
			slog.Error("Cron: External attendance sync failed",
				"date", day,
				"trace_id", telemetry.CorrelationID(runCtx),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("sync %s: %w", day, err))
			continue
		}

		slog.Info("Cron: External attendance synced",
			"date", result.Date,
			"trace_id", telemetry.CorrelationID(runCtx),
			"synced", result.SyncedCount,
			"skipped", result.SkippedCount,
			"errors", result.ErrorCount,
		)
	}

	return errors.Join(errs...)
}
