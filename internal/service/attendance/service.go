package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	employee.EmployeeRepository
	tx         database.Transactor
	normalizer *civiltime.Normalizer
	now        func() time.Time
}

// RecordManualAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) RecordManualAttendance(ctx context.Context, req attendance.ManualAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	emp, err := a.EmployeeRepository.GetByID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return attendance.AttendanceResponse{}, employee.ErrEmployeeNotFound
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	if !emp.IsManualAttendance {
		return attendance.AttendanceResponse{}, attendance.ErrManualAttendanceNotPermitted
	}

	today := a.normalizer.Today(a.now())
	input := req.Input(today)

	actor := req.ActorID
	if actor == "" {
		actor = emp.ID
	}

	var saved attendance.Record
	err = a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := a.AttendanceRepository.LockByEmployeeAndDate(ctx, emp.ID, input.Date)
		if err != nil {
			return err
		}

		if !attendance.CanOverwrite(existing, attendance.SourceManual) {
			return attendance.ErrSourceConflict
		}

		newEvents := attendance.ConvertAuditBatch(a.normalizer, input.Events, input.Date)
		start := a.toUTC(input.Start, input.Date)
		end := a.toUTC(input.End, input.Date)

		if existing == nil {
			saved, err = a.createManualRecord(ctx, emp.ID, actor, input, start, end, newEvents)
			return err
		}

		saved, err = a.amendManualRecord(ctx, *existing, actor, today, input, start, end, newEvents)
		return err
	})
	if err != nil {
		if errors.Is(err, attendance.ErrSourceConflict) || errors.Is(err, attendance.ErrDuplicateRecord) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to record manual attendance: %w", err)
	}

	saved.EmployeeName = &emp.FullName
	return a.mapRecordToResponse(saved), nil
}

func (a *AttendanceServiceImpl) createManualRecord(
	ctx context.Context,
	employeeID, actor string,
	input attendance.ManualInput,
	start, end *time.Time,
	events []attendance.AuditEvent,
) (attendance.Record, error) {
	rec, err := a.AttendanceRepository.Create(ctx, attendance.Record{
		EmployeeID:  employeeID,
		Date:        input.Date,
		StartTime:   start,
		EndTime:     end,
		DayOfWeek:   attendance.DayOfWeek(input.Date),
		TotalWorked: attendance.ComputeTotalWorked(start, end, events),
		Location:    input.Location,
		Source:      attendance.SourceManual,
		CreatedBy:   actor,
		ModifiedBy:  actor,
	})
	if err != nil {
		return attendance.Record{}, err
	}

	stored, err := a.AttendanceRepository.AppendAuditEvents(ctx, rec.ID, events)
	if err != nil {
		return attendance.Record{}, err
	}
	rec.AuditEvents = stored

	return rec, nil
}

func (a *AttendanceServiceImpl) amendManualRecord(
	ctx context.Context,
	rec attendance.Record,
	actor string,
	today time.Time,
	input attendance.ManualInput,
	start, end *time.Time,
	events []attendance.AuditEvent,
) (attendance.Record, error) {
	history, err := a.AttendanceRepository.ListAuditEvents(ctx, []string{rec.ID})
	if err != nil {
		return attendance.Record{}, err
	}
	prior := history[rec.ID]

	switch {
	case input.Start == nil && input.End == nil:
		// events only: stored times and location stay as they are
	case input.Start == nil && civiltime.SameDate(rec.Date, today):
		// clocking out today keeps the earlier clock in
		rec.EndTime = end
	default:
		rec.StartTime = start
		rec.EndTime = end
		rec.Location = input.Location
	}

	all := append(append([]attendance.AuditEvent{}, prior...), events...)
	rec.TotalWorked = attendance.ComputeTotalWorked(rec.StartTime, rec.EndTime, all)
	rec.ModifiedBy = actor

	if err := a.AttendanceRepository.Update(ctx, rec); err != nil {
		return attendance.Record{}, err
	}

	stored, err := a.AttendanceRepository.AppendAuditEvents(ctx, rec.ID, events)
	if err != nil {
		return attendance.Record{}, err
	}
	rec.AuditEvents = append(prior, stored...)
	rec.UpdatedAt = a.now().UTC()

	return rec, nil
}

func (a *AttendanceServiceImpl) toUTC(clock *civiltime.WallClock, date time.Time) *time.Time {
	if clock == nil {
		return nil
	}
	t := a.normalizer.LocalToUTC(*clock, date)
	return &t
}

// GetAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetAttendance(ctx context.Context, req attendance.GetAttendanceRequest) (attendance.GetAttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.GetAttendanceResponse{}, err
	}

	emp, err := a.EmployeeRepository.GetByID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return attendance.GetAttendanceResponse{}, employee.ErrEmployeeNotFound
		}
		return attendance.GetAttendanceResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	filter := req.Filter()
	records, total, err := a.AttendanceRepository.ListByEmployee(ctx, emp.ID, filter)
	if err != nil {
		return attendance.GetAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	events, err := a.AttendanceRepository.ListAuditEvents(ctx, ids)
	if err != nil {
		return attendance.GetAttendanceResponse{}, fmt.Errorf("failed to list audit events: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		rec.AuditEvents = events[rec.ID]
		rec.EmployeeName = &emp.FullName
		responses = append(responses, a.mapRecordToResponse(rec))
	}

	isTimedIn, err := a.isTimedInToday(ctx, emp.ID)
	if err != nil {
		return attendance.GetAttendanceResponse{}, err
	}

	dates, err := a.AttendanceRepository.ListDatesWithAttendance(ctx, emp.ID, filter.DateFrom, filter.DateTo)
	if err != nil {
		return attendance.GetAttendanceResponse{}, fmt.Errorf("failed to list attendance dates: %w", err)
	}
	datesWithAttendance := make([]string, 0, len(dates))
	for _, d := range dates {
		datesWithAttendance = append(datesWithAttendance, d.Format(civiltime.DateLayout))
	}

	totalPages := int(math.Ceil(float64(total) / float64(req.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (req.Page-1)*req.Limit+1, min(req.Page*req.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.GetAttendanceResponse{
		Records:             responses,
		TotalRecords:        total,
		Page:                req.Page,
		Limit:               req.Limit,
		TotalPages:          totalPages,
		Showing:             showing,
		IsManualAttendance:  emp.IsManualAttendance,
		IsTimedIn:           isTimedIn,
		DatesWithAttendance: datesWithAttendance,
	}, nil
}

// isTimedInToday derives the flag from today's record in the organization's
// local date.
func (a *AttendanceServiceImpl) isTimedInToday(ctx context.Context, employeeID string) (bool, error) {
	today := a.normalizer.Today(a.now())
	rec, err := a.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, today)
	if err != nil {
		return false, fmt.Errorf("failed to get today's attendance: %w", err)
	}
	if rec == nil {
		return false, nil
	}

	events, err := a.AttendanceRepository.ListAuditEvents(ctx, []string{rec.ID})
	if err != nil {
		return false, fmt.Errorf("failed to list today's audit events: %w", err)
	}

	return attendance.IsTimedIn(events[rec.ID]), nil
}

// mapRecordToResponse converts stored UTC times back to local wall clock.
func (a *AttendanceServiceImpl) mapRecordToResponse(rec attendance.Record) attendance.AttendanceResponse {
	events := make([]attendance.AuditEventResponse, 0, len(rec.AuditEvents))
	for _, ev := range rec.AuditEvents {
		events = append(events, attendance.AuditEventResponse{
			Action:  string(ev.Action),
			Time:    a.normalizer.UTCToLocal(ev.Time).Clock.String(),
			Comment: ev.Comment,
			Reason:  ev.Reason,
		})
	}

	return attendance.AttendanceResponse{
		ID:           rec.ID,
		EmployeeID:   rec.EmployeeID,
		EmployeeName: rec.EmployeeName,
		Date:         rec.Date.Format(civiltime.DateLayout),
		DayOfWeek:    rec.DayOfWeek,
		StartTime:    a.normalizer.FormatClock(rec.StartTime),
		EndTime:      a.normalizer.FormatClock(rec.EndTime),
		TotalWorked:  rec.TotalWorked,
		Location:     rec.Location,
		Source:       string(rec.Source),
		AuditEvents:  events,
		CreatedBy:    rec.CreatedBy,
		ModifiedBy:   rec.ModifiedBy,
		CreatedAt:    a.normalizer.FormatDateTime(rec.CreatedAt),
		UpdatedAt:    a.normalizer.FormatDateTime(rec.UpdatedAt),
	}
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	normalizer *civiltime.Normalizer,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		EmployeeRepository:   employeeRepo,
		tx:                   tx,
		normalizer:           normalizer,
		now:                  time.Now,
	}
}
