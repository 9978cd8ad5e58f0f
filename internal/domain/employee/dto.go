package employee

// ReportFilter selects employees for attendance reports.
// Limit 0 means no pagination.
type ReportFilter struct {
	EmployeeCode       *string
	Name               *string
	Department         *string
	Branch             *string
	IsManualAttendance *bool

	Page  int
	Limit int
}
