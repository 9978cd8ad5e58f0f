package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
)

const ZeroDuration = "00:00"

// CanOverwrite reports whether a write from incoming may modify existing.
// Each source only ever touches its own records.
func CanOverwrite(existing *Record, incoming Source) bool {
	if existing == nil {
		return true
	}
	return existing.Source == incoming
}

// IsTimedIn derives the legacy "is_timed_in" flag from the ordered audit trail:
// true only when the last event is a time out.
func IsTimedIn(events []AuditEvent) bool {
	if len(events) == 0 {
		return false
	}
	return events[len(events)-1].Action == ActionTimeOut
}

// WorkedBetween returns end-start truncated to the minute, or zero when either
// bound is missing or end is before start.
func WorkedBetween(start, end *time.Time) time.Duration {
	if start == nil || end == nil || end.Before(*start) {
		return 0
	}
	return end.Sub(*start).Truncate(time.Minute)
}

// WorkedFromEvents sums time_in/resume -> time_out/break intervals in order.
// An opening action without a matching close contributes nothing.
func WorkedFromEvents(events []AuditEvent) time.Duration {
	var total time.Duration
	var open *time.Time
	for i := range events {
		ev := events[i]
		switch {
		case ev.Action.opens():
			if open == nil {
				open = &events[i].Time
			}
		case ev.Action.closes():
			if open != nil {
				if ev.Time.After(*open) {
					total += ev.Time.Sub(*open)
				}
				open = nil
			}
		}
	}
	return total.Truncate(time.Minute)
}

// ComputeTotalWorked picks (start, end) when both are known and falls back to
// the audit history otherwise.
func ComputeTotalWorked(start, end *time.Time, history []AuditEvent) string {
	if start != nil && end != nil {
		return FormatHHMM(WorkedBetween(start, end))
	}
	return FormatHHMM(WorkedFromEvents(history))
}

// FormatHHMM renders a duration as "HH:MM"; negative durations render as "00:00".
func FormatHHMM(d time.Duration) string {
	if d <= 0 {
		return ZeroDuration
	}
	minutes := int64(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatSeconds renders provider totals: floor(s/3600):floor(s%3600/60).
func FormatSeconds(seconds int64) string {
	if seconds <= 0 {
		return ZeroDuration
	}
	return fmt.Sprintf("%02d:%02d", seconds/3600, (seconds%3600)/60)
}

// ParseHHMM is the inverse of FormatHHMM. Hours may exceed 24.
func ParseHHMM(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("invalid duration hours %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid duration minutes %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// FormatReportDuration renders "<h>h <m>min", dropping the minutes when zero.
func FormatReportDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dmin", h, m)
}

func DayOfWeek(date time.Time) string {
	return date.Weekday().String()
}

// AuditEventInput is a local wall-clock audit event as entered by a user.
type AuditEventInput struct {
	Action  Action
	Clock   civiltime.WallClock
	Comment *string
	Reason  *string
}

// ConvertAuditBatch moves each event's wall clock on date into UTC.
func ConvertAuditBatch(n *civiltime.Normalizer, inputs []AuditEventInput, date time.Time) []AuditEvent {
	events := make([]AuditEvent, 0, len(inputs))
	for _, in := range inputs {
		events = append(events, AuditEvent{
			Action:  in.Action,
			Time:    n.LocalToUTC(in.Clock, date),
			Comment: in.Comment,
			Reason:  in.Reason,
		})
	}
	return events
}

// SyncedEvents is the audit trail a sync writes for one provider summary.
func SyncedEvents(start, end time.Time) []AuditEvent {
	return []AuditEvent{
		{Action: ActionTimeIn, Time: start},
		{Action: ActionTimeOut, Time: end},
	}
}

// MatchesSyncState reports whether rec already holds exactly the given
// sync values and audit trail.
func (rec *Record) MatchesSyncState(start, end time.Time, total string, events []AuditEvent) bool {
	if rec.StartTime == nil || !rec.StartTime.Equal(start) {
		return false
	}
	if rec.EndTime == nil || !rec.EndTime.Equal(end) {
		return false
	}
	if rec.TotalWorked != total || rec.Location == nil || *rec.Location != SyncLocation {
		return false
	}
	if len(rec.AuditEvents) != len(events) {
		return false
	}
	for i := range events {
		got := rec.AuditEvents[i]
		if got.Action != events[i].Action || !got.Time.Equal(events[i].Time) || got.Comment != nil || got.Reason != nil {
			return false
		}
	}
	return true
}
