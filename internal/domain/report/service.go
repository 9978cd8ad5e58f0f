package report

import (
	"context"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/export"
)

// ReportService builds the per-employee attendance matrix
type ReportService interface {
	// GetAttendanceReport returns one page of employees with their daily totals
	GetAttendanceReport(ctx context.Context, req AttendanceReportRequest) (AttendanceReportPage, error)

	// ExportAttendanceReport returns every matching employee as a table with one column per date
	ExportAttendanceReport(ctx context.Context, req AttendanceReportRequest) (export.Table, error)
}
