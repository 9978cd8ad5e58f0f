package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/export"
)

var exportBaseHeaders = []string{"Employee Code", "Employee Name", "Department", "Branch"}

type ReportServiceImpl struct {
	attendance.AttendanceRepository
	employee.EmployeeRepository
	normalizer *civiltime.Normalizer
}

func NewReportService(
	attendanceRepo attendance.AttendanceRepository,
	employeeRepo employee.EmployeeRepository,
	normalizer *civiltime.Normalizer,
) report.ReportService {
	return &ReportServiceImpl{
		AttendanceRepository: attendanceRepo,
		EmployeeRepository:   employeeRepo,
		normalizer:           normalizer,
	}
}

// GetAttendanceReport implements report.ReportService.
func (s *ReportServiceImpl) GetAttendanceReport(ctx context.Context, req report.AttendanceReportRequest) (report.AttendanceReportPage, error) {
	if err := req.Validate(); err != nil {
		return report.AttendanceReportPage{}, err
	}
	from, to := req.Range()

	employees, total, err := s.EmployeeRepository.ListForReport(ctx, req.EmployeeFilter(true))
	if err != nil {
		return report.AttendanceReportPage{}, fmt.Errorf("failed to list report employees: %w", err)
	}

	rows, err := s.buildRows(ctx, employees, from, to)
	if err != nil {
		return report.AttendanceReportPage{}, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(req.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (req.Page-1)*req.Limit+1, min(req.Page*req.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return report.AttendanceReportPage{
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
		Dates:        datesNewestFirst(from, to),
		Rows:         rows,
		TotalRecords: total,
		Page:         req.Page,
		Limit:        req.Limit,
		TotalPages:   totalPages,
		Showing:      showing,
	}, nil
}

// ExportAttendanceReport implements report.ReportService.
func (s *ReportServiceImpl) ExportAttendanceReport(ctx context.Context, req report.AttendanceReportRequest) (export.Table, error) {
	if err := req.Validate(); err != nil {
		return export.Table{}, err
	}
	from, to := req.Range()

	employees, _, err := s.EmployeeRepository.ListForReport(ctx, req.EmployeeFilter(false))
	if err != nil {
		return export.Table{}, fmt.Errorf("failed to list report employees: %w", err)
	}

	rows, err := s.buildRows(ctx, employees, from, to)
	if err != nil {
		return export.Table{}, err
	}

	dates := datesNewestFirst(from, to)
	headers := append(append(append([]string{}, exportBaseHeaders...), dates...), "Total")

	table := export.Table{
		Title:   fmt.Sprintf("Attendance %s to %s", req.DateFrom, req.DateTo),
		Headers: headers,
		Rows:    make([][]string, 0, len(rows)),
	}

	for _, row := range rows {
		cells := []string{row.EmployeeCode, row.EmployeeName, deref(row.Department), deref(row.Branch)}
		var sum time.Duration
		for _, d := range dates {
			worked, ok := row.Days[d]
			if !ok {
				cells = append(cells, "")
				continue
			}
			dur, _ := attendance.ParseHHMM(worked)
			sum += dur
			cells = append(cells, attendance.FormatReportDuration(dur))
		}
		cells = append(cells, attendance.FormatReportDuration(sum))
		table.Rows = append(table.Rows, cells)
	}

	return table, nil
}

// buildRows loads every record of employees in [from, to] and folds them
// into one row per employee, keeping the employee order.
func (s *ReportServiceImpl) buildRows(ctx context.Context, employees []employee.Employee, from, to time.Time) ([]report.EmployeeReportRow, error) {
	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.ID)
	}

	records, err := s.AttendanceRepository.ListByEmployeesInRange(ctx, ids, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance records: %w", err)
	}

	byEmployee := make(map[string][]attendance.Record, len(employees))
	for _, rec := range records {
		byEmployee[rec.EmployeeID] = append(byEmployee[rec.EmployeeID], rec)
	}

	rows := make([]report.EmployeeReportRow, 0, len(employees))
	for _, emp := range employees {
		recs := byEmployee[emp.ID]
		sort.Slice(recs, func(i, j int) bool { return recs[i].Date.After(recs[j].Date) })

		row := report.EmployeeReportRow{
			EmployeeID:         emp.ID,
			EmployeeCode:       emp.EmployeeCode,
			EmployeeName:       emp.FullName,
			Department:         emp.Department,
			Branch:             emp.Branch,
			IsManualAttendance: emp.IsManualAttendance,
			Days:               make(map[string]string, len(recs)),
			Details:            make([]report.DayDetail, 0, len(recs)),
		}

		var sum time.Duration
		for _, rec := range recs {
			date := rec.Date.Format(civiltime.DateLayout)
			dur, err := attendance.ParseHHMM(rec.TotalWorked)
			if err != nil {
				slog.Warn("Report: unreadable total worked", "record_id", rec.ID, "total_worked", rec.TotalWorked)
				dur = 0
			}
			sum += dur

			row.Days[date] = attendance.FormatHHMM(dur)
			row.Details = append(row.Details, report.DayDetail{
				Date:        date,
				DayOfWeek:   rec.DayOfWeek,
				StartTime:   s.normalizer.FormatClock(rec.StartTime),
				EndTime:     s.normalizer.FormatClock(rec.EndTime),
				TotalWorked: attendance.FormatHHMM(dur),
				Location:    rec.Location,
				Source:      string(rec.Source),
			})
		}
		row.TotalHour = attendance.FormatHHMM(sum)

		rows = append(rows, row)
	}

	return rows, nil
}

func datesNewestFirst(from, to time.Time) []string {
	var dates []string
	for d := to; !d.Before(from); d = d.AddDate(0, 0, -1) {
		dates = append(dates, d.Format(civiltime.DateLayout))
	}
	return dates
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
