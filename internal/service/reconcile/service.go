// Package reconcile merges the time tracking provider's daily summaries into
// attendance records for employees whose attendance is synced.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/timetracker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeUnchanged
	outcomeSkipped
)

type SyncServiceImpl struct {
	attendance.AttendanceRepository
	employee.EmployeeRepository
	tx       database.Transactor
	provider timetracker.Client
}

func NewSyncService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	provider timetracker.Client,
) attendance.SyncService {
	return &SyncServiceImpl{
		AttendanceRepository: attendanceRepo,
		EmployeeRepository:   employeeRepo,
		tx:                   tx,
		provider:             provider,
	}
}

// SyncDate implements attendance.SyncService. A provider failure aborts the
// run before anything is written; per-employee failures are counted and the
// run continues.
func (s *SyncServiceImpl) SyncDate(ctx context.Context, date time.Time) (attendance.SyncResult, error) {
	y, m, d := date.Date()
	date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	day := date.Format(civiltime.DateLayout)

	ctx, span := telemetry.Tracer("reconcile").Start(ctx, "SyncDate",
		trace.WithAttributes(attribute.String("attendance.date", day)))
	defer span.End()

	ctx, traceID := telemetry.EnsureCorrelationID(ctx)
	result := attendance.SyncResult{Date: day}

	candidates, err := s.EmployeeRepository.ListSyncCandidates(ctx, date)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("failed to list sync candidates: %w", err)
	}
	result.TotalCandidates = len(candidates)

	if len(candidates) == 0 {
		slog.Info("Sync: no candidates", "date", day, "trace_id", traceID)
		return result, nil
	}

	from, to := civiltime.DayWindowUTC(date)
	dailies, err := s.provider.DailySummaries(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider fetch failed")
		slog.Error("Sync: provider fetch failed", "date", day, "trace_id", traceID, "error", err)
		return result, fmt.Errorf("%w: %v", attendance.ErrProviderUnavailable, err)
	}
	users := timetracker.UsersOn(dailies, date)

	for _, emp := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var summary timetracker.UserSummary
		var ok bool
		if emp.ExternalUserID != nil {
			summary, ok = users[*emp.ExternalUserID]
		}
		if !ok {
			result.NoDataCount++
			continue
		}

		out, err := s.syncEmployee(ctx, emp, date, summary)
		if err != nil {
			result.ErrorCount++
			slog.Error("Sync: failed to reconcile employee",
				"employee_id", emp.ID,
				"trace_id", traceID,
				"date", day,
				"error", err,
			)
			continue
		}

		switch out {
		case outcomeSkipped:
			result.SkippedCount++
			slog.Info("Sync: manual record kept", "employee_id", emp.ID, "trace_id", traceID, "date", day)
		default:
			result.SyncedCount++
		}
	}

	span.SetAttributes(
		attribute.Int("sync.candidates", result.TotalCandidates),
		attribute.Int("sync.synced", result.SyncedCount),
		attribute.Int("sync.errors", result.ErrorCount),
	)
	slog.Info("Sync: completed",
		"date", day,
		"trace_id", traceID,
		"total_candidates", result.TotalCandidates,
		"synced", result.SyncedCount,
		"skipped", result.SkippedCount,
		"no_data", result.NoDataCount,
		"errors", result.ErrorCount,
	)

	return result, nil
}

// syncEmployee upserts one employee's record and audit trail in a single
// transaction.
func (s *SyncServiceImpl) syncEmployee(ctx context.Context, emp employee.Employee, date time.Time, summary timetracker.UserSummary) (outcome, error) {
	start, end, seconds, err := summary.Parse()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", attendance.ErrMalformedSummary, err)
	}
	total := attendance.FormatSeconds(seconds)
	events := attendance.SyncedEvents(start, end)

	var out outcome
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.AttendanceRepository.LockByEmployeeAndDate(ctx, emp.ID, date)
		if err != nil {
			return err
		}

		if !attendance.CanOverwrite(existing, attendance.SourceExternalSync) {
			out = outcomeSkipped
			return nil
		}

		location := attendance.SyncLocation

		if existing == nil {
			rec, err := s.AttendanceRepository.Create(ctx, attendance.Record{
				EmployeeID:  emp.ID,
				Date:        date,
				StartTime:   &start,
				EndTime:     &end,
				DayOfWeek:   attendance.DayOfWeek(date),
				TotalWorked: total,
				Location:    &location,
				Source:      attendance.SourceExternalSync,
				CreatedBy:   attendance.SyncActor,
				ModifiedBy:  attendance.SyncActor,
			})
			if err != nil {
				return err
			}
			if _, err := s.AttendanceRepository.ReplaceAuditEvents(ctx, rec.ID, events); err != nil {
				return err
			}
			out = outcomeCreated
			return nil
		}

		history, err := s.AttendanceRepository.ListAuditEvents(ctx, []string{existing.ID})
		if err != nil {
			return err
		}
		existing.AuditEvents = history[existing.ID]

		if existing.MatchesSyncState(start, end, total, events) {
			out = outcomeUnchanged
			return nil
		}

		existing.StartTime = &start
		existing.EndTime = &end
		existing.TotalWorked = total
		existing.Location = &location
		existing.ModifiedBy = attendance.SyncActor

		if err := s.AttendanceRepository.Update(ctx, *existing); err != nil {
			return err
		}
		if _, err := s.AttendanceRepository.ReplaceAuditEvents(ctx, existing.ID, events); err != nil {
			return err
		}
		out = outcomeUpdated
		return nil
	})
	if err != nil {
		return 0, err
	}

	return out, nil
}
