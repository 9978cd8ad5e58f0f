package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

var recordColumns = []string{
	"ar.id", "ar.employee_id", "ar.date", "ar.start_time", "ar.end_time", "ar.day_of_week",
	"ar.total_worked", "ar.location", "ar.source", "ar.is_deleted",
	"ar.created_by", "ar.modified_by", "ar.created_at", "ar.updated_at",
}

var auditEventColumns = []string{
	"id", "record_id", "sequence", "action", "time", "comment", "reason", "created_at",
}

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func scanRecord(row pgx.Row, extra ...any) (attendance.Record, error) {
	var rec attendance.Record
	var source string
	dest := []any{
		&rec.ID, &rec.EmployeeID, &rec.Date, &rec.StartTime, &rec.EndTime, &rec.DayOfWeek,
		&rec.TotalWorked, &rec.Location, &source, &rec.IsDeleted,
		&rec.CreatedBy, &rec.ModifiedBy, &rec.CreatedAt, &rec.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return attendance.Record{}, err
	}
	rec.Source = attendance.Source(source)
	return rec, nil
}

func (a *attendanceRepository) getByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, lock bool) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT ar.id, ar.employee_id, ar.date, ar.start_time, ar.end_time, ar.day_of_week,
			   ar.total_worked, ar.location, ar.source, ar.is_deleted,
			   ar.created_by, ar.modified_by, ar.created_at, ar.updated_at
		FROM attendance_records ar
		WHERE ar.employee_id = $1
		  AND ar.date = $2
		  AND ar.is_deleted = FALSE
	`
	if lock {
		query += " FOR UPDATE"
	}

	rec, err := scanRecord(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	return &rec, nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	return a.getByEmployeeAndDate(ctx, employeeID, date, false)
}

// LockByEmployeeAndDate implements attendance.AttendanceRepository.
func (a *attendanceRepository) LockByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	return a.getByEmployeeAndDate(ctx, employeeID, date, true)
}

// Create implements attendance.AttendanceRepository.
func (a *attendanceRepository) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, fmt.Errorf("failed to generate attendance id: %w", err)
		}
		rec.ID = id.String()
	}

	query := `
		INSERT INTO attendance_records (
			id, employee_id, date, start_time, end_time, day_of_week,
			total_worked, location, source, created_by, modified_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		rec.ID, rec.EmployeeID, rec.Date, rec.StartTime, rec.EndTime, rec.DayOfWeek,
		rec.TotalWorked, rec.Location, string(rec.Source), rec.CreatedBy, rec.ModifiedBy,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return attendance.Record{}, attendance.ErrDuplicateRecord
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return rec, nil
}

// Update implements attendance.AttendanceRepository.
func (a *attendanceRepository) Update(ctx context.Context, rec attendance.Record) error {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET start_time = $2,
			end_time = $3,
			total_worked = $4,
			location = $5,
			modified_by = $6,
			updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`

	tag, err := q.Exec(ctx, query, rec.ID, rec.StartTime, rec.EndTime, rec.TotalWorked, rec.Location, rec.ModifiedBy)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}

	return nil
}

// AppendAuditEvents implements attendance.AttendanceRepository.
func (a *attendanceRepository) AppendAuditEvents(ctx context.Context, recordID string, events []attendance.AuditEvent) ([]attendance.AuditEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, a.db)

	var last int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM attendance_audit_events WHERE record_id = $1`,
		recordID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to get last audit sequence: %w", err)
	}

	return a.insertAuditEvents(ctx, q, recordID, last, events)
}

// ReplaceAuditEvents implements attendance.AttendanceRepository.
func (a *attendanceRepository) ReplaceAuditEvents(ctx context.Context, recordID string, events []attendance.AuditEvent) ([]attendance.AuditEvent, error) {
	q := GetQuerier(ctx, a.db)

	if _, err := q.Exec(ctx, `DELETE FROM attendance_audit_events WHERE record_id = $1`, recordID); err != nil {
		return nil, fmt.Errorf("failed to delete audit events: %w", err)
	}

	if len(events) == 0 {
		return nil, nil
	}
	return a.insertAuditEvents(ctx, q, recordID, 0, events)
}

func (a *attendanceRepository) insertAuditEvents(ctx context.Context, q database.Querier, recordID string, after int, events []attendance.AuditEvent) ([]attendance.AuditEvent, error) {
	now := time.Now().UTC()
	stored := make([]attendance.AuditEvent, 0, len(events))

	insert := psql.Insert("attendance_audit_events").Columns(auditEventColumns...)
	for i, ev := range events {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate audit event id: %w", err)
		}
		ev.ID = id.String()
		ev.RecordID = recordID
		ev.Sequence = after + i + 1
		ev.Time = ev.Time.UTC()
		ev.CreatedAt = now

		insert = insert.Values(ev.ID, ev.RecordID, ev.Sequence, string(ev.Action), ev.Time, ev.Comment, ev.Reason, ev.CreatedAt)
		stored = append(stored, ev)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit event insert: %w", err)
	}

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to insert audit events: %w", err)
	}

	return stored, nil
}

// ListAuditEvents implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListAuditEvents(ctx context.Context, recordIDs []string) (map[string][]attendance.AuditEvent, error) {
	result := make(map[string][]attendance.AuditEvent, len(recordIDs))
	if len(recordIDs) == 0 {
		return result, nil
	}
	q := GetQuerier(ctx, a.db)

	query, args, err := psql.Select(auditEventColumns...).
		From("attendance_audit_events").
		Where(squirrel.Eq{"record_id": recordIDs}).
		OrderBy("record_id", "sequence").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit event query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev attendance.AuditEvent
		var action string
		if err := rows.Scan(&ev.ID, &ev.RecordID, &ev.Sequence, &action, &ev.Time, &ev.Comment, &ev.Reason, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		ev.Action = attendance.Action(action)
		ev.Time = ev.Time.UTC()
		result[ev.RecordID] = append(result[ev.RecordID], ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func applyDateRange(b squirrel.SelectBuilder, from, to *time.Time) squirrel.SelectBuilder {
	if from != nil {
		b = b.Where(squirrel.GtOrEq{"ar.date": *from})
	}
	if to != nil {
		b = b.Where(squirrel.LtOrEq{"ar.date": *to})
	}
	return b
}

// ListByEmployee implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByEmployee(ctx context.Context, employeeID string, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	where := squirrel.And{
		squirrel.Eq{"ar.employee_id": employeeID},
		squirrel.Eq{"ar.is_deleted": false},
	}

	countQuery, countArgs, err := applyDateRange(
		psql.Select("COUNT(*)").From("attendance_records ar").Where(where),
		filter.DateFrom, filter.DateTo,
	).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := q.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	builder := applyDateRange(
		psql.Select(recordColumns...).From("attendance_records ar").Where(where),
		filter.DateFrom, filter.DateTo,
	).OrderBy("ar.date DESC")
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64((page - 1) * filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	records, err := a.queryRecords(ctx, q, query, args)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListDatesWithAttendance implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListDatesWithAttendance(ctx context.Context, employeeID string, from, to *time.Time) ([]time.Time, error) {
	q := GetQuerier(ctx, a.db)

	query, args, err := applyDateRange(
		psql.Select("ar.date").From("attendance_records ar").Where(squirrel.Eq{
			"ar.employee_id": employeeID,
			"ar.is_deleted":  false,
		}),
		from, to,
	).OrderBy("ar.date DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build dates query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan attendance date: %w", err)
		}
		dates = append(dates, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return dates, nil
}

// ListByEmployeesInRange implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListByEmployeesInRange(ctx context.Context, employeeIDs []string, from, to time.Time) ([]attendance.Record, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	q := GetQuerier(ctx, a.db)

	query, args, err := applyDateRange(
		psql.Select(recordColumns...).From("attendance_records ar").Where(squirrel.Eq{
			"ar.employee_id": employeeIDs,
			"ar.is_deleted":  false,
		}),
		&from, &to,
	).OrderBy("ar.employee_id", "ar.date DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build range query: %w", err)
	}

	return a.queryRecords(ctx, q, query, args)
}

func (a *attendanceRepository) queryRecords(ctx context.Context, q database.Querier, query string, args []any) ([]attendance.Record, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}
