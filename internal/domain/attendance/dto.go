package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// ========================================
// MANUAL ATTENDANCE DTOs
// ========================================

type AuditEventRequest struct {
	Action  string  `json:"action"`
	Time    string  `json:"time"` // HH:MM or HH:MM:SS, local
	Comment *string `json:"comment,omitempty"`
	Reason  *string `json:"reason,omitempty"`
}

type ManualAttendanceRequest struct {
	EmployeeID  string              `json:"-"`
	ActorID     string              `json:"-"`
	Date        *string             `json:"date,omitempty"`       // YYYY-MM-DD, local; defaults to today
	StartTime   *string             `json:"start_time,omitempty"` // HH:MM or HH:MM:SS, local
	EndTime     *string             `json:"end_time,omitempty"`   // HH:MM or HH:MM:SS, local
	Location    *string             `json:"location,omitempty"`
	AuditEvents []AuditEventRequest `json:"audit_events,omitempty"`
}

func (r *ManualAttendanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Date != nil && *r.Date != "" {
		if _, valid := validator.IsValidDate(*r.Date); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	start, startErr := parseOptionalClock(r.StartTime)
	if startErr != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "start_time",
			Message: "start_time must be in HH:MM or HH:MM:SS format",
		})
	}

	end, endErr := parseOptionalClock(r.EndTime)
	if endErr != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "end_time",
			Message: "end_time must be in HH:MM or HH:MM:SS format",
		})
	}

	if start != nil && end != nil && clockSeconds(*end) < clockSeconds(*start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_time",
			Message: "end_time must not be before start_time",
		})
	}

	if r.Location != nil && len(*r.Location) > 255 {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "location must not exceed 255 characters",
		})
	}

	for i, ev := range r.AuditEvents {
		field := "audit_events[" + validator.Itoa(i) + "]"
		if !validator.IsInSlice(strings.ToLower(ev.Action), ValidActions) {
			errs = append(errs, validator.ValidationError{
				Field:   field + ".action",
				Message: "action must be one of: time_in, time_out, break, resume",
			})
		}
		if _, err := civiltime.ParseWallClock(ev.Time); err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   field + ".time",
				Message: "time must be in HH:MM or HH:MM:SS format",
			})
		}
	}

	if r.StartTime == nil && r.EndTime == nil && len(r.AuditEvents) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "start_time",
			Message: "start_time, end_time or audit_events is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ManualInput is a validated ManualAttendanceRequest with parsed values.
type ManualInput struct {
	Date     time.Time
	Start    *civiltime.WallClock
	End      *civiltime.WallClock
	Location *string
	Events   []AuditEventInput
}

// Input parses a request that already passed Validate. today fills a missing date.
func (r *ManualAttendanceRequest) Input(today time.Time) ManualInput {
	in := ManualInput{Date: today, Location: r.Location}
	if r.Date != nil && *r.Date != "" {
		if d, err := civiltime.ParseDate(*r.Date); err == nil {
			in.Date = d
		}
	}
	in.Start, _ = parseOptionalClock(r.StartTime)
	in.End, _ = parseOptionalClock(r.EndTime)
	for _, ev := range r.AuditEvents {
		clock, err := civiltime.ParseWallClock(ev.Time)
		if err != nil {
			continue
		}
		in.Events = append(in.Events, AuditEventInput{
			Action:  Action(strings.ToLower(ev.Action)),
			Clock:   clock,
			Comment: ev.Comment,
			Reason:  ev.Reason,
		})
	}
	return in
}

func parseOptionalClock(s *string) (*civiltime.WallClock, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	w, err := civiltime.ParseWallClock(*s)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func clockSeconds(w civiltime.WallClock) int {
	return w.Hour*3600 + w.Minute*60 + w.Second
}

// ========================================
// RESPONSES
// ========================================

type AuditEventResponse struct {
	Action  string  `json:"action"`
	Time    string  `json:"time"`
	Comment *string `json:"comment,omitempty"`
	Reason  *string `json:"reason,omitempty"`
}

type AttendanceResponse struct {
	ID           string               `json:"id"`
	EmployeeID   string               `json:"employee_id"`
	EmployeeName *string              `json:"employee_name,omitempty"`
	Date         string               `json:"date"`
	DayOfWeek    string               `json:"day_of_week"`
	StartTime    *string              `json:"start_time,omitempty"`
	EndTime      *string              `json:"end_time,omitempty"`
	TotalWorked  string               `json:"total_worked"`
	Location     *string              `json:"location,omitempty"`
	Source       string               `json:"source"`
	AuditEvents  []AuditEventResponse `json:"audit_events"`
	CreatedBy    string               `json:"created_by"`
	ModifiedBy   string               `json:"modified_by"`
	CreatedAt    string               `json:"created_at"`
	UpdatedAt    string               `json:"updated_at"`
}

// ========================================
// ATTENDANCE LOOKUP DTOs
// ========================================

type GetAttendanceRequest struct {
	EmployeeID string  `json:"employee_id"`
	DateFrom   *string `json:"date_from,omitempty"` // YYYY-MM-DD
	DateTo     *string `json:"date_to,omitempty"`   // YYYY-MM-DD

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *GetAttendanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	// Page validation
	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	// Limit validation
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	var from, to time.Time
	var hasFrom, hasTo bool
	if f.DateFrom != nil && *f.DateFrom != "" {
		if from, hasFrom = validator.IsValidDate(*f.DateFrom); !hasFrom {
			errs = append(errs, validator.ValidationError{
				Field:   "date_from",
				Message: "date_from must be in YYYY-MM-DD format",
			})
		}
	}
	if f.DateTo != nil && *f.DateTo != "" {
		if to, hasTo = validator.IsValidDate(*f.DateTo); !hasTo {
			errs = append(errs, validator.ValidationError{
				Field:   "date_to",
				Message: "date_to must be in YYYY-MM-DD format",
			})
		}
	}
	if hasFrom && hasTo && from.After(to) {
		errs = append(errs, validator.ValidationError{
			Field:   "date_from",
			Message: "date_from must not be after date_to",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Filter converts a validated request into a repository filter.
func (f *GetAttendanceRequest) Filter() RecordFilter {
	filter := RecordFilter{Page: f.Page, Limit: f.Limit}
	if f.DateFrom != nil && *f.DateFrom != "" {
		if d, err := civiltime.ParseDate(*f.DateFrom); err == nil {
			filter.DateFrom = &d
		}
	}
	if f.DateTo != nil && *f.DateTo != "" {
		if d, err := civiltime.ParseDate(*f.DateTo); err == nil {
			filter.DateTo = &d
		}
	}
	return filter
}

type GetAttendanceResponse struct {
	Records             []AttendanceResponse `json:"records"`
	TotalRecords        int64                `json:"total_records"`
	Page                int                  `json:"page"`
	Limit               int                  `json:"limit"`
	TotalPages          int                  `json:"total_pages"`
	Showing             string               `json:"showing"`
	IsManualAttendance  bool                 `json:"is_manual_attendance"`
	IsTimedIn           bool                 `json:"is_timed_in"`
	DatesWithAttendance []string             `json:"dates_with_attendance"`
}
