package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/report"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/export"
)

type ReportHandler interface {
	GetAttendanceReport(w http.ResponseWriter, r *http.Request)
	ExportAttendanceReport(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// GetAttendanceReport handles GET /reports/attendance
func (h *reportHandlerImpl) GetAttendanceReport(w http.ResponseWriter, r *http.Request) {
	req, ok := parseReportRequest(w, r)
	if !ok {
		return
	}

	result, err := h.reportService.GetAttendanceReport(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalRecords,
		TotalPages: result.TotalPages,
	})
}

// ExportAttendanceReport handles GET /reports/attendance/export?format=csv|xlsx
func (h *reportHandlerImpl) ExportAttendanceReport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.ValidationError(w, map[string]string{"format": err.Error()})
		return
	}

	req, ok := parseReportRequest(w, r)
	if !ok {
		return
	}

	table, err := h.reportService.ExportAttendanceReport(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		slog.Error("Failed to render attendance export", "format", format, "error", err)
		response.InternalServerError(w, "Failed to render export")
		return
	}

	filename := fmt.Sprintf("attendance_%s_%s.%s", req.DateFrom, req.DateTo, format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseReportRequest(w http.ResponseWriter, r *http.Request) (report.AttendanceReportRequest, bool) {
	query := r.URL.Query()
	req := report.AttendanceReportRequest{
		DateFrom: query.Get("date_from"),
		DateTo:   query.Get("date_to"),
	}

	// Filters
	if v := query.Get("employee_code"); v != "" {
		req.EmployeeCode = &v
	}
	if v := query.Get("name"); v != "" {
		req.Name = &v
	}
	if v := query.Get("department"); v != "" {
		req.Department = &v
	}
	if v := query.Get("branch"); v != "" {
		req.Branch = &v
	}
	if v := query.Get("is_manual_attendance"); v != "" {
		manual, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(w, "invalid is_manual_attendance parameter", nil)
			return req, false
		}
		req.IsManualAttendance = &manual
	}

	// Pagination
	if p := query.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			response.BadRequest(w, "invalid page parameter", nil)
			return req, false
		}
		req.Page = page
	}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			response.BadRequest(w, "invalid limit parameter", nil)
			return req, false
		}
		req.Limit = limit
	}

	return req, true
}
