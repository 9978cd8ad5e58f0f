package attendance

import (
	"time"
)

type Source string

const (
	SourceManual       Source = "manual"
	SourceExternalSync Source = "external_sync"
)

type Action string

const (
	ActionTimeIn  Action = "time_in"
	ActionTimeOut Action = "time_out"
	ActionBreak   Action = "break"
	ActionResume  Action = "resume"
)

var ValidActions = []string{
	string(ActionTimeIn),
	string(ActionTimeOut),
	string(ActionBreak),
	string(ActionResume),
}

// opens reports whether the action starts a worked interval.
func (a Action) opens() bool {
	return a == ActionTimeIn || a == ActionResume
}

// closes reports whether the action ends a worked interval.
func (a Action) closes() bool {
	return a == ActionTimeOut || a == ActionBreak
}

// SyncLocation is stored on every record written by the external sync.
const SyncLocation = "Remote"

// SyncActor is the created_by/modified_by value used by the external sync.
const SyncActor = "system:external-sync"

type Record struct {
	ID          string
	EmployeeID  string
	Date        time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	DayOfWeek   string
	TotalWorked string
	Location    *string
	Source      Source
	IsDeleted   bool
	CreatedBy   string
	ModifiedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	AuditEvents []AuditEvent

	// DTO
	EmployeeName *string
	EmployeeCode *string
}

type AuditEvent struct {
	ID        string
	RecordID  string
	Sequence  int
	Action    Action
	Time      time.Time
	Comment   *string
	Reason    *string
	CreatedAt time.Time
}

// SyncResult summarizes one external sync run for a date.
type SyncResult struct {
	Date            string `json:"date"`
	TotalCandidates int    `json:"total_candidates"`
	SyncedCount     int    `json:"synced_count"`
	SkippedCount    int    `json:"skipped_count"`
	NoDataCount     int    `json:"no_data_count"`
	ErrorCount      int    `json:"error_count"`
}
