// Package civiltime converts between the organization's fixed civil offset and UTC.
//
// The organization offset is always passed in explicitly. Nothing here reads
// time.Local or the TZ environment variable.
package civiltime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// WallClock is a time of day without a date or zone.
type WallClock struct {
	Hour   int
	Minute int
	Second int
}

// ParseWallClock accepts "HH:MM" or "HH:MM:SS".
func ParseWallClock(s string) (WallClock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return WallClock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return WallClock{}, fmt.Errorf("invalid wall clock time %q", s)
}

func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", w.Hour, w.Minute, w.Second)
}

// LocalTime is a civil date plus wall clock in the organization's zone.
type LocalTime struct {
	Date  time.Time
	Clock WallClock
}

func (l LocalTime) String() string {
	return l.Date.Format(DateLayout) + " " + l.Clock.String()
}

// ParseOffset parses "+05:30", "-03:00", "+0700", "Z" or "UTC".
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "Z") || strings.EqualFold(s, "UTC") {
		return 0, nil
	}

	sign := time.Duration(1)
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("offset %q must start with + or -", s)
	}

	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 4 {
		return 0, fmt.Errorf("offset %q must look like +HH:MM", s)
	}
	hours, err := strconv.Atoi(body[:2])
	if err != nil {
		return 0, fmt.Errorf("offset %q has invalid hours: %w", s, err)
	}
	minutes, err := strconv.Atoi(body[2:])
	if err != nil {
		return 0, fmt.Errorf("offset %q has invalid minutes: %w", s, err)
	}
	if hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("offset %q out of range", s)
	}

	return sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}

// Normalizer holds the organization's fixed civil offset.
type Normalizer struct {
	offset time.Duration
	loc    *time.Location
}

// NewNormalizer returns a Normalizer for a fixed offset east of UTC.
func NewNormalizer(offset time.Duration) *Normalizer {
	return &Normalizer{
		offset: offset,
		loc:    time.FixedZone(zoneName(offset), int(offset/time.Second)),
	}
}

// NewNormalizerFromString is NewNormalizer for an offset string such as "+05:30".
func NewNormalizerFromString(offset string) (*Normalizer, error) {
	d, err := ParseOffset(offset)
	if err != nil {
		return nil, err
	}
	return NewNormalizer(d), nil
}

func zoneName(offset time.Duration) string {
	if offset == 0 {
		return "UTC"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, int(offset/time.Hour), int((offset%time.Hour)/time.Minute))
}

func (n *Normalizer) Location() *time.Location { return n.loc }

func (n *Normalizer) Offset() time.Duration { return n.offset }

// LocalToUTC interprets clock on the civil date of date in the organization's
// zone and returns the UTC instant. Only the year, month and day of date are used.
func (n *Normalizer) LocalToUTC(clock WallClock, date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour, clock.Minute, clock.Second, 0, n.loc).UTC()
}

// UTCToLocal is the inverse of LocalToUTC, truncated to whole seconds.
func (n *Normalizer) UTCToLocal(t time.Time) LocalTime {
	local := t.In(n.loc)
	y, m, d := local.Date()
	return LocalTime{
		Date:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Clock: WallClock{Hour: local.Hour(), Minute: local.Minute(), Second: local.Second()},
	}
}

// Today returns the organization's civil date at now, as midnight UTC.
func (n *Normalizer) Today(now time.Time) time.Time {
	return n.UTCToLocal(now).Date
}

// FormatClock renders a stored UTC instant as a local "HH:MM:SS".
func (n *Normalizer) FormatClock(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := n.UTCToLocal(*t).Clock.String()
	return &s
}

// FormatDateTime renders a stored UTC instant as a local "YYYY-MM-DD HH:MM:SS".
func (n *Normalizer) FormatDateTime(t time.Time) string {
	return t.In(n.loc).Format(DateTimeLayout)
}

// ParseDate parses a civil date "YYYY-MM-DD" as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// SameDate reports whether a and b fall on the same calendar date in their own zones.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayWindowUTC returns [date 00:00:00, date 23:59:59] in UTC.
func DayWindowUTC(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Second)
}
