package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	RecordMyManualAttendance(w http.ResponseWriter, r *http.Request)
	RecordEmployeeManualAttendance(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	GetEmployeeAttendance(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

// RecordMyManualAttendance handles POST /attendance/manual
func (h *attendanceHandlerImpl) RecordMyManualAttendance(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}
	if principal.EmployeeID == nil {
		response.HandleError(w, user.ErrEmployeeIDRequired)
		return
	}

	h.recordManual(w, r, *principal.EmployeeID, principal.UserID)
}

// RecordEmployeeManualAttendance handles POST /attendance/employees/{employeeID}/manual
func (h *attendanceHandlerImpl) RecordEmployeeManualAttendance(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}

	h.recordManual(w, r, chi.URLParam(r, "employeeID"), principal.UserID)
}

func (h *attendanceHandlerImpl) recordManual(w http.ResponseWriter, r *http.Request, employeeID, actorID string) {
	var req attendance.ManualAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode manual attendance request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EmployeeID = employeeID
	req.ActorID = actorID

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.RecordManualAttendance(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance recorded", result)
}

// GetMyAttendance handles GET /attendance/my
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.HandleError(w, user.ErrInvalidToken)
		return
	}
	if principal.EmployeeID == nil {
		response.HandleError(w, user.ErrEmployeeIDRequired)
		return
	}

	h.getAttendance(w, r, *principal.EmployeeID)
}

// GetEmployeeAttendance handles GET /attendance/employees/{employeeID}
func (h *attendanceHandlerImpl) GetEmployeeAttendance(w http.ResponseWriter, r *http.Request) {
	h.getAttendance(w, r, chi.URLParam(r, "employeeID"))
}

func (h *attendanceHandlerImpl) getAttendance(w http.ResponseWriter, r *http.Request, employeeID string) {
	query := r.URL.Query()
	req := attendance.GetAttendanceRequest{EmployeeID: employeeID}

	if dateFrom := query.Get("date_from"); dateFrom != "" {
		req.DateFrom = &dateFrom
	}
	if dateTo := query.Get("date_to"); dateTo != "" {
		req.DateTo = &dateTo
	}

	// Pagination
	if p := query.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			response.BadRequest(w, "invalid page parameter", nil)
			return
		}
		req.Page = page
	}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			response.BadRequest(w, "invalid limit parameter", nil)
			return
		}
		req.Limit = limit
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.GetAttendance(r.Context(), req)
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
