package attendance

import "errors"

var (
	ErrManualAttendanceNotPermitted = errors.New("manual attendance is not permitted for this employee")
	ErrRecordNotFound               = errors.New("attendance record not found")
	ErrSourceConflict               = errors.New("attendance record is owned by another source")
	ErrDuplicateRecord              = errors.New("attendance record already exists for this date")

	// External sync errors
	ErrProviderUnavailable = errors.New("time tracking provider unavailable")
	ErrMalformedSummary    = errors.New("malformed time tracking summary")
)
