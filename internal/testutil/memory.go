// Package testutil holds in-memory repositories and token helpers for tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
)

// AttendanceStore is an in-memory attendance.AttendanceRepository. Writes
// counts Create and Update calls.
type AttendanceStore struct {
	mu      sync.Mutex
	seq     int
	records map[string]attendance.Record
	events  map[string][]attendance.AuditEvent
	Writes  int

	// FailCreate makes Create return this error.
	FailCreate error
}

func NewAttendanceStore() *AttendanceStore {
	return &AttendanceStore{
		records: make(map[string]attendance.Record),
		events:  make(map[string][]attendance.AuditEvent),
	}
}

func (s *AttendanceStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// Seed stores rec and its audit events as-is.
func (s *AttendanceStore) Seed(rec attendance.Record) attendance.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = s.nextID("rec")
	}
	for i := range rec.AuditEvents {
		rec.AuditEvents[i].RecordID = rec.ID
		rec.AuditEvents[i].Sequence = i + 1
	}
	s.events[rec.ID] = rec.AuditEvents
	rec.AuditEvents = nil
	s.records[rec.ID] = rec
	return rec
}

// Find returns the live record for employeeID on date with its events.
func (s *AttendanceStore) Find(employeeID string, date time.Time) (attendance.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.find(employeeID, date)
	if !ok {
		return attendance.Record{}, false
	}
	rec.AuditEvents = append([]attendance.AuditEvent(nil), s.events[rec.ID]...)
	return rec, true
}

func (s *AttendanceStore) find(employeeID string, date time.Time) (attendance.Record, bool) {
	for _, rec := range s.records {
		if rec.EmployeeID == employeeID && rec.Date.Equal(date) && !rec.IsDeleted {
			return rec, true
		}
	}
	return attendance.Record{}, false
}

func (s *AttendanceStore) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.find(employeeID, date)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *AttendanceStore) LockByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	return s.GetByEmployeeAndDate(ctx, employeeID, date)
}

func (s *AttendanceStore) Create(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return attendance.Record{}, s.FailCreate
	}
	if _, ok := s.find(rec.EmployeeID, rec.Date); ok {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	rec.ID = s.nextID("rec")
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	rec.AuditEvents = nil
	s.records[rec.ID] = rec
	s.Writes++
	return rec, nil
}

func (s *AttendanceStore) Update(ctx context.Context, rec attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[rec.ID]
	if !ok || stored.IsDeleted {
		return attendance.ErrRecordNotFound
	}
	stored.StartTime = rec.StartTime
	stored.EndTime = rec.EndTime
	stored.TotalWorked = rec.TotalWorked
	stored.Location = rec.Location
	stored.ModifiedBy = rec.ModifiedBy
	stored.UpdatedAt = time.Now().UTC()
	s.records[rec.ID] = stored
	s.Writes++
	return nil
}

func (s *AttendanceStore) AppendAuditEvents(ctx context.Context, recordID string, events []attendance.AuditEvent) ([]attendance.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendEvents(recordID, events), nil
}

func (s *AttendanceStore) appendEvents(recordID string, events []attendance.AuditEvent) []attendance.AuditEvent {
	stored := make([]attendance.AuditEvent, 0, len(events))
	last := len(s.events[recordID])
	for i, ev := range events {
		ev.ID = s.nextID("ev")
		ev.RecordID = recordID
		ev.Sequence = last + i + 1
		ev.Time = ev.Time.UTC()
		stored = append(stored, ev)
	}
	s.events[recordID] = append(s.events[recordID], stored...)
	return stored
}

func (s *AttendanceStore) ReplaceAuditEvents(ctx context.Context, recordID string, events []attendance.AuditEvent) ([]attendance.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, recordID)
	return s.appendEvents(recordID, events), nil
}

func (s *AttendanceStore) ListAuditEvents(ctx context.Context, recordIDs []string) (map[string][]attendance.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string][]attendance.AuditEvent, len(recordIDs))
	for _, id := range recordIDs {
		if evs, ok := s.events[id]; ok {
			result[id] = append([]attendance.AuditEvent(nil), evs...)
		}
	}
	return result, nil
}

func inRange(date time.Time, from, to *time.Time) bool {
	if from != nil && date.Before(*from) {
		return false
	}
	if to != nil && date.After(*to) {
		return false
	}
	return true
}

func (s *AttendanceStore) employeeRecords(employeeID string, from, to *time.Time) []attendance.Record {
	var records []attendance.Record
	for _, rec := range s.records {
		if rec.EmployeeID == employeeID && !rec.IsDeleted && inRange(rec.Date, from, to) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records
}

func (s *AttendanceStore) ListByEmployee(ctx context.Context, employeeID string, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.employeeRecords(employeeID, filter.DateFrom, filter.DateTo)
	total := int64(len(records))
	if filter.Limit > 0 {
		offset := (max(filter.Page, 1) - 1) * filter.Limit
		if offset >= len(records) {
			return nil, total, nil
		}
		records = records[offset:min(offset+filter.Limit, len(records))]
	}
	return records, total, nil
}

func (s *AttendanceStore) ListDatesWithAttendance(ctx context.Context, employeeID string, from, to *time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dates []time.Time
	for _, rec := range s.employeeRecords(employeeID, from, to) {
		dates = append(dates, rec.Date)
	}
	return dates, nil
}

func (s *AttendanceStore) ListByEmployeesInRange(ctx context.Context, employeeIDs []string, from, to time.Time) ([]attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []attendance.Record
	for _, id := range employeeIDs {
		records = append(records, s.employeeRecords(id, &from, &to)...)
	}
	return records, nil
}

// EmployeeStore is an in-memory employee.EmployeeRepository.
type EmployeeStore struct {
	Employees []employee.Employee
}

func (s *EmployeeStore) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	for _, emp := range s.Employees {
		if emp.ID == id && emp.DeletedAt == nil {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (s *EmployeeStore) ListSyncCandidates(ctx context.Context, date time.Time) ([]employee.Employee, error) {
	var candidates []employee.Employee
	for _, emp := range s.Employees {
		if emp.IsSyncCandidate(date) && emp.EmploymentStatus != employee.EmploymentStatusExEmployee {
			candidates = append(candidates, emp)
		}
	}
	return candidates, nil
}

func matches(emp employee.Employee, f employee.ReportFilter) bool {
	if emp.DeletedAt != nil || emp.EmploymentStatus == employee.EmploymentStatusExEmployee {
		return false
	}
	if f.EmployeeCode != nil && *f.EmployeeCode != "" && emp.EmployeeCode != *f.EmployeeCode {
		return false
	}
	if f.Name != nil && *f.Name != "" && !strings.Contains(strings.ToLower(emp.FullName), strings.ToLower(*f.Name)) {
		return false
	}
	if f.Department != nil && *f.Department != "" && (emp.Department == nil || *emp.Department != *f.Department) {
		return false
	}
	if f.Branch != nil && *f.Branch != "" && (emp.Branch == nil || *emp.Branch != *f.Branch) {
		return false
	}
	if f.IsManualAttendance != nil && emp.IsManualAttendance != *f.IsManualAttendance {
		return false
	}
	return true
}

func (s *EmployeeStore) ListForReport(ctx context.Context, filter employee.ReportFilter) ([]employee.Employee, int64, error) {
	var result []employee.Employee
	for _, emp := range s.Employees {
		if matches(emp, filter) {
			result = append(result, emp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeCode < result[j].EmployeeCode })
	total := int64(len(result))
	if filter.Limit > 0 {
		offset := (max(filter.Page, 1) - 1) * filter.Limit
		if offset >= len(result) {
			return nil, total, nil
		}
		result = result[offset:min(offset+filter.Limit, len(result))]
	}
	return result, total, nil
}

// Transactor runs fn directly. Calls counts transactions.
type Transactor struct {
	Calls int
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++
	return fn(ctx)
}
