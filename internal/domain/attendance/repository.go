package attendance

import (
	"context"
	"time"
)

// AttendanceRepository is the AttendanceRecord store and its audit trail.
// Methods honour a transaction carried in ctx.
type AttendanceRepository interface {
	// GetByEmployeeAndDate returns nil, nil when no live record exists
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Record, error)

	// LockByEmployeeAndDate is GetByEmployeeAndDate with a row lock (SELECT ... FOR UPDATE)
	LockByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Record, error)

	Create(ctx context.Context, record Record) (Record, error)
	Update(ctx context.Context, record Record) error

	// AppendAuditEvents adds events after the existing ones, in order
	AppendAuditEvents(ctx context.Context, recordID string, events []AuditEvent) ([]AuditEvent, error)

	// ReplaceAuditEvents deletes every event of the record and inserts events.
	// Callers run it in the same transaction as the record write.
	ReplaceAuditEvents(ctx context.Context, recordID string, events []AuditEvent) ([]AuditEvent, error)

	// ListAuditEvents returns events per record id, in insertion order
	ListAuditEvents(ctx context.Context, recordIDs []string) (map[string][]AuditEvent, error)

	// ListByEmployee returns one page of records, newest date first, and the total count
	ListByEmployee(ctx context.Context, employeeID string, filter RecordFilter) ([]Record, int64, error)

	ListDatesWithAttendance(ctx context.Context, employeeID string, from, to *time.Time) ([]time.Time, error)

	// ListByEmployeesInRange returns records of the given employees with from <= date <= to
	ListByEmployeesInRange(ctx context.Context, employeeIDs []string, from, to time.Time) ([]Record, error)
}

type RecordFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}
