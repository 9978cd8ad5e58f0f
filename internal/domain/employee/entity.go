package employee

import (
	"time"
)

type Employee struct {
	ID                 string
	CompanyID          string
	EmployeeCode       string
	FullName           string
	Department         *string
	Branch             *string
	IsManualAttendance bool
	ExternalUserID     *string
	JoiningDate        time.Time
	EmploymentStatus   EmploymentStatus
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusProbation  EmploymentStatus = "probation"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
	EmploymentStatusExEmployee EmploymentStatus = "ex_employee"
)

// IsSyncCandidate reports whether the external sync should handle this
// employee on date.
func (e Employee) IsSyncCandidate(date time.Time) bool {
	if !e.IsActive || e.DeletedAt != nil || e.IsManualAttendance {
		return false
	}
	if e.ExternalUserID == nil || *e.ExternalUserID == "" {
		return false
	}
	return !e.JoiningDate.After(date)
}
