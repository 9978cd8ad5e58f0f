package report

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// MaxRangeDays caps date_to - date_from.
const MaxRangeDays = 60

// ========================================
// ATTENDANCE REPORT
// ========================================

type AttendanceReportRequest struct {
	DateFrom string `json:"date_from"` // YYYY-MM-DD
	DateTo   string `json:"date_to"`   // YYYY-MM-DD

	// Filters
	EmployeeCode       *string `json:"employee_code,omitempty"`
	Name               *string `json:"name,omitempty"`
	Department         *string `json:"department,omitempty"`
	Branch             *string `json:"branch,omitempty"`
	IsManualAttendance *bool   `json:"is_manual_attendance,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Validate checks formats and pagination, then the range itself. A well
// formed range that is reversed or too long yields ErrInvalidDateRange.
func (r *AttendanceReportRequest) Validate() error {
	var errs validator.ValidationErrors

	from, fromOK := validator.IsValidDate(r.DateFrom)
	if !fromOK {
		errs = append(errs, validator.ValidationError{
			Field:   "date_from",
			Message: "date_from is required in YYYY-MM-DD format",
		})
	}
	to, toOK := validator.IsValidDate(r.DateTo)
	if !toOK {
		errs = append(errs, validator.ValidationError{
			Field:   "date_to",
			Message: "date_to is required in YYYY-MM-DD format",
		})
	}

	if r.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if r.Page == 0 {
		r.Page = 1
	}

	if r.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if r.Limit == 0 {
		r.Limit = 20
	}
	if r.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	if from.After(to) || to.Sub(from) > MaxRangeDays*24*time.Hour {
		return ErrInvalidDateRange
	}

	return nil
}

// Range returns the parsed bounds of a validated request.
func (r *AttendanceReportRequest) Range() (time.Time, time.Time) {
	from, _ := validator.IsValidDate(r.DateFrom)
	to, _ := validator.IsValidDate(r.DateTo)
	return from, to
}

// EmployeeFilter maps the request filters. paginate=false lists everyone.
func (r *AttendanceReportRequest) EmployeeFilter(paginate bool) employee.ReportFilter {
	filter := employee.ReportFilter{
		EmployeeCode:       r.EmployeeCode,
		Name:               r.Name,
		Department:         r.Department,
		Branch:             r.Branch,
		IsManualAttendance: r.IsManualAttendance,
	}
	if paginate {
		filter.Page = r.Page
		filter.Limit = r.Limit
	}
	return filter
}

type DayDetail struct {
	Date        string  `json:"date"`
	DayOfWeek   string  `json:"day_of_week"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	TotalWorked string  `json:"total_worked"`
	Location    *string `json:"location,omitempty"`
	Source      string  `json:"source"`
}

// EmployeeReportRow is computed per request and never stored.
type EmployeeReportRow struct {
	EmployeeID         string            `json:"employee_id"`
	EmployeeCode       string            `json:"employee_code"`
	EmployeeName       string            `json:"employee_name"`
	Department         *string           `json:"department,omitempty"`
	Branch             *string           `json:"branch,omitempty"`
	IsManualAttendance bool              `json:"is_manual_attendance"`
	Days               map[string]string `json:"days"` // date -> HH:MM
	TotalHour          string            `json:"total_hour"`
	Details            []DayDetail       `json:"details"`
}

type AttendanceReportPage struct {
	DateFrom string              `json:"date_from"`
	DateTo   string              `json:"date_to"`
	Dates    []string            `json:"dates"` // newest first
	Rows     []EmployeeReportRow `json:"rows"`

	TotalRecords int64  `json:"total_records"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
	TotalPages   int    `json:"total_pages"`
	Showing      string `json:"showing"`
}
