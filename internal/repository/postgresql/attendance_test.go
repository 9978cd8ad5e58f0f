package postgresql

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, attendance.AttendanceRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewAttendanceRepository(database.NewDB(mock))
}

func recordRow(id string, start, end time.Time, source string) *pgxmock.Rows {
	now := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "employee_id", "date", "start_time", "end_time", "day_of_week",
		"total_worked", "location", "source", "is_deleted",
		"created_by", "modified_by", "created_at", "updated_at",
	}).AddRow(
		id, "emp-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), &start, &end, "Monday",
		"08:30", ptr("Remote"), source, false,
		"system:external-sync", "system:external-sync", now, now,
	)
}

func TestAttendanceRepository_Create(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "success",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO attendance_records").
					WithArgs(
						pgxmock.AnyArg(), "emp-1", date, pgxmock.AnyArg(), pgxmock.AnyArg(), "Monday",
						"08:30", pgxmock.AnyArg(), "external_sync", "system:external-sync", "system:external-sync",
					).
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name: "duplicate",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("INSERT INTO attendance_records").
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: attendance.ErrDuplicateRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			tt.setup(mock)

			start := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
			end := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
			rec, err := repo.Create(context.Background(), attendance.Record{
				EmployeeID:  "emp-1",
				Date:        date,
				StartTime:   &start,
				EndTime:     &end,
				DayOfWeek:   "Monday",
				TotalWorked: "08:30",
				Location:    ptr(attendance.SyncLocation),
				Source:      attendance.SourceExternalSync,
				CreatedBy:   attendance.SyncActor,
				ModifiedBy:  attendance.SyncActor,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, rec.ID)
				assert.Equal(t, now, rec.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAttendanceRepository_Update_NotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectExec("UPDATE attendance_records").
		WithArgs("rec-1", pgxmock.AnyArg(), pgxmock.AnyArg(), "09:00", pgxmock.AnyArg(), "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	end := start.Add(9 * time.Hour)
	err := repo.Update(context.Background(), attendance.Record{
		ID: "rec-1", StartTime: &start, EndTime: &end, TotalWorked: "09:00", ModifiedBy: "user-1",
	})

	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_GetByEmployeeAndDate(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("absent", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("FROM attendance_records").
			WithArgs("emp-1", date).
			WillReturnError(pgx.ErrNoRows)

		rec, err := repo.GetByEmployeeAndDate(context.Background(), "emp-1", date)
		require.NoError(t, err)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locked", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		start := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
		end := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("emp-1", date).
			WillReturnRows(recordRow("rec-1", start, end, "external_sync"))

		rec, err := repo.LockByEmployeeAndDate(context.Background(), "emp-1", date)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, attendance.SourceExternalSync, rec.Source)
		assert.Equal(t, "08:30", rec.TotalWorked)
		assert.True(t, rec.StartTime.Equal(start))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAttendanceRepository_AppendAuditEvents(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(sequence\), 0\)`).
		WithArgs("rec-1").
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(2))
	mock.ExpectExec("INSERT INTO attendance_audit_events").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	stored, err := repo.AppendAuditEvents(context.Background(), "rec-1", []attendance.AuditEvent{
		{Action: attendance.ActionBreak, Time: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)},
		{Action: attendance.ActionResume, Time: time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)},
	})

	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 3, stored[0].Sequence)
	assert.Equal(t, 4, stored[1].Sequence)
	assert.Equal(t, "rec-1", stored[1].RecordID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_ReplaceAuditEvents(t *testing.T) {
	mock, repo := newMockRepo(t)
	mock.ExpectExec("DELETE FROM attendance_audit_events").
		WithArgs("rec-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO attendance_audit_events").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	start := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	end := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	stored, err := repo.ReplaceAuditEvents(context.Background(), "rec-1", attendance.SyncedEvents(start, end))

	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].Sequence)
	assert.Equal(t, attendance.ActionTimeIn, stored[0].Action)
	assert.Equal(t, 2, stored[1].Sequence)
	assert.Equal(t, attendance.ActionTimeOut, stored[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_ListAuditEvents(t *testing.T) {
	mock, repo := newMockRepo(t)
	created := time.Date(2024, 1, 15, 20, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM attendance_audit_events").
		WithArgs("rec-1", "rec-2").
		WillReturnRows(pgxmock.NewRows(auditEventColumns).
			AddRow("ev-1", "rec-1", 1, "time_in", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), ptr("badge"), ptr(""), created).
			AddRow("ev-2", "rec-1", 2, "time_out", time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), ptr(""), ptr(""), created).
			AddRow("ev-3", "rec-2", 1, "time_in", time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC), ptr(""), ptr(""), created))

	events, err := repo.ListAuditEvents(context.Background(), []string{"rec-1", "rec-2"})

	require.NoError(t, err)
	require.Len(t, events["rec-1"], 2)
	require.Len(t, events["rec-2"], 1)
	assert.Equal(t, attendance.ActionTimeOut, events["rec-1"][1].Action)
	assert.Equal(t, "badge", *events["rec-1"][0].Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepository_ListAuditEvents_Empty(t *testing.T) {
	mock, repo := newMockRepo(t)

	events, err := repo.ListAuditEvents(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
