package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance-go/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// 2024-01-15 17:00 at +07:00
var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *AttendanceServiceImpl
	records *testutil.AttendanceStore
	tx      *testutil.Transactor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	records := testutil.NewAttendanceStore()
	employees := &testutil.EmployeeStore{Employees: []employee.Employee{
		{ID: "emp-manual", FullName: "Alice", IsManualAttendance: true, IsActive: true, EmploymentStatus: employee.EmploymentStatusActive},
		{ID: "emp-synced", FullName: "Bob", ExternalUserID: ptr("u123"), IsActive: true, EmploymentStatus: employee.EmploymentStatusActive},
	}}
	tx := &testutil.Transactor{}

	svc := NewAttendanceService(tx, records, employees, civiltime.NewNormalizer(7*time.Hour)).(*AttendanceServiceImpl)
	svc.now = func() time.Time { return testNow }

	return fixture{svc: svc, records: records, tx: tx}
}

func date(s string) time.Time {
	d, _ := civiltime.ParseDate(s)
	return d
}

func TestRecordManualAttendance_ClockOutTodayKeepsClockIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RecordManualAttendance(ctx, attendance.ManualAttendanceRequest{
		EmployeeID:  "emp-manual",
		StartTime:   ptr("09:00"),
		Location:    ptr("Office"),
		AuditEvents: []attendance.AuditEventRequest{{Action: "time_in", Time: "09:00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", first.Date)
	assert.Equal(t, "Monday", first.DayOfWeek)
	assert.Equal(t, "09:00:00", *first.StartTime)
	assert.Nil(t, first.EndTime)
	assert.Equal(t, "00:00", first.TotalWorked)

	second, err := f.svc.RecordManualAttendance(ctx, attendance.ManualAttendanceRequest{
		EmployeeID:  "emp-manual",
		EndTime:     ptr("18:00"),
		AuditEvents: []attendance.AuditEventRequest{{Action: "time_out", Time: "18:00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.StartTime)
	assert.Equal(t, "09:00:00", *second.StartTime)
	assert.Equal(t, "18:00:00", *second.EndTime)
	assert.Equal(t, "Office", *second.Location)
	assert.Equal(t, "09:00", second.TotalWorked)
	require.Len(t, second.AuditEvents, 2)
	assert.Equal(t, "time_in", second.AuditEvents[0].Action)
	assert.Equal(t, "time_out", second.AuditEvents[1].Action)

	stored, ok := f.records.Find("emp-manual", date("2024-01-15"))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC), *stored.StartTime)
	assert.Equal(t, time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC), *stored.EndTime)
	assert.Equal(t, attendance.SourceManual, stored.Source)
	assert.Equal(t, 2, f.tx.Calls)
}

func TestRecordManualAttendance_PastDayEndOnlyReplacesStart(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)
	f.records.Seed(attendance.Record{
		EmployeeID: "emp-manual",
		Date:       date("2024-01-10"),
		StartTime:  &start,
		Location:   ptr("Office"),
		Source:     attendance.SourceManual,
		AuditEvents: []attendance.AuditEvent{
			{Action: attendance.ActionTimeIn, Time: start},
		},
	})

	resp, err := f.svc.RecordManualAttendance(context.Background(), attendance.ManualAttendanceRequest{
		EmployeeID:  "emp-manual",
		Date:        ptr("2024-01-10"),
		EndTime:     ptr("17:00"),
		AuditEvents: []attendance.AuditEventRequest{{Action: "time_out", Time: "17:00"}},
	})

	require.NoError(t, err)
	assert.Nil(t, resp.StartTime)
	assert.Nil(t, resp.Location)
	assert.Equal(t, "17:00:00", *resp.EndTime)
	// No start any more, so the total comes from the audit history.
	assert.Equal(t, "08:00", resp.TotalWorked)
}

func TestRecordManualAttendance_ActorRecorded(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.RecordManualAttendance(context.Background(), attendance.ManualAttendanceRequest{
		EmployeeID: "emp-manual",
		ActorID:    "hr-1",
		Date:       ptr("2024-01-12"),
		StartTime:  ptr("08:00"),
		EndTime:    ptr("16:30"),
	})

	require.NoError(t, err)
	assert.Equal(t, "hr-1", resp.CreatedBy)
	assert.Equal(t, "hr-1", resp.ModifiedBy)
	assert.Equal(t, "08:30", resp.TotalWorked)
	assert.Equal(t, "Alice", *resp.EmployeeName)
}

func TestRecordManualAttendance_Errors(t *testing.T) {
	tests := []struct {
		name    string
		seed    func(s *testutil.AttendanceStore)
		req     attendance.ManualAttendanceRequest
		wantErr error
	}{
		{
			name:    "manual attendance not permitted",
			req:     attendance.ManualAttendanceRequest{EmployeeID: "emp-synced", StartTime: ptr("09:00")},
			wantErr: attendance.ErrManualAttendanceNotPermitted,
		},
		{
			name:    "unknown employee",
			req:     attendance.ManualAttendanceRequest{EmployeeID: "nobody", StartTime: ptr("09:00")},
			wantErr: employee.ErrEmployeeNotFound,
		},
		{
			name: "record owned by sync",
			seed: func(s *testutil.AttendanceStore) {
				s.Seed(attendance.Record{EmployeeID: "emp-manual", Date: date("2024-01-15"), Source: attendance.SourceExternalSync})
			},
			req:     attendance.ManualAttendanceRequest{EmployeeID: "emp-manual", EndTime: ptr("18:00")},
			wantErr: attendance.ErrSourceConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.seed != nil {
				tt.seed(f.records)
			}

			_, err := f.svc.RecordManualAttendance(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecordManualAttendance_EndBeforeStartRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RecordManualAttendance(context.Background(), attendance.ManualAttendanceRequest{
		EmployeeID: "emp-manual",
		StartTime:  ptr("18:00"),
		EndTime:    ptr("09:00"),
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "end_time")
	assert.Equal(t, 0, f.records.Writes)
}

func TestGetAttendance(t *testing.T) {
	f := newFixture(t)
	in := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	out := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
	f.records.Seed(attendance.Record{
		EmployeeID: "emp-manual", Date: date("2024-01-15"), StartTime: &in, EndTime: &out,
		TotalWorked: "09:00", Source: attendance.SourceManual,
		AuditEvents: []attendance.AuditEvent{
			{Action: attendance.ActionTimeIn, Time: in},
			{Action: attendance.ActionTimeOut, Time: out},
		},
	})
	f.records.Seed(attendance.Record{
		EmployeeID: "emp-manual", Date: date("2024-01-12"), TotalWorked: "08:00", Source: attendance.SourceManual,
	})

	resp, err := f.svc.GetAttendance(context.Background(), attendance.GetAttendanceRequest{EmployeeID: "emp-manual"})

	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.TotalRecords)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Limit)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Equal(t, "1-2 of 2", resp.Showing)
	assert.True(t, resp.IsManualAttendance)
	assert.True(t, resp.IsTimedIn)
	assert.Equal(t, []string{"2024-01-15", "2024-01-12"}, resp.DatesWithAttendance)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "09:00:00", *resp.Records[0].StartTime)
	require.Len(t, resp.Records[0].AuditEvents, 2)
	assert.Equal(t, "18:00:00", resp.Records[0].AuditEvents[1].Time)
}

func TestGetAttendance_OnBreakIsNotTimedIn(t *testing.T) {
	f := newFixture(t)
	f.records.Seed(attendance.Record{
		EmployeeID: "emp-manual", Date: date("2024-01-15"), Source: attendance.SourceManual,
		AuditEvents: []attendance.AuditEvent{
			{Action: attendance.ActionTimeIn, Time: time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)},
			{Action: attendance.ActionBreak, Time: time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)},
		},
	})

	resp, err := f.svc.GetAttendance(context.Background(), attendance.GetAttendanceRequest{
		EmployeeID: "emp-manual",
		DateFrom:   ptr("2024-01-01"),
		DateTo:     ptr("2024-01-31"),
	})

	require.NoError(t, err)
	assert.False(t, resp.IsTimedIn)
	assert.Equal(t, []string{"2024-01-15"}, resp.DatesWithAttendance)
}

func TestGetAttendance_Empty(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GetAttendance(context.Background(), attendance.GetAttendanceRequest{EmployeeID: "emp-synced"})

	require.NoError(t, err)
	assert.Equal(t, "0 of 0", resp.Showing)
	assert.False(t, resp.IsManualAttendance)
	assert.False(t, resp.IsTimedIn)
	assert.Empty(t, resp.Records)
	assert.Empty(t, resp.DatesWithAttendance)
}
