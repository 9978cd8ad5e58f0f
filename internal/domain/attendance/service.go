package attendance

import (
	"context"
	"time"
)

// AttendanceService covers manual recording and attendance lookups
type AttendanceService interface {
	// RecordManualAttendance creates or amends the employee's record for a day
	RecordManualAttendance(ctx context.Context, req ManualAttendanceRequest) (AttendanceResponse, error)

	// GetAttendance lists an employee's records with the timed-in flag
	GetAttendance(ctx context.Context, req GetAttendanceRequest) (GetAttendanceResponse, error)
}

// SyncService reconciles external time tracking data into attendance records
type SyncService interface {
	SyncDate(ctx context.Context, date time.Time) (SyncResult, error)
}
