package attendance

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2024, 1, 15, h, m, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestCanOverwrite(t *testing.T) {
	manual := &Record{Source: SourceManual}
	synced := &Record{Source: SourceExternalSync}

	assert.True(t, CanOverwrite(nil, SourceManual))
	assert.True(t, CanOverwrite(nil, SourceExternalSync))
	assert.True(t, CanOverwrite(synced, SourceExternalSync))
	assert.True(t, CanOverwrite(manual, SourceManual))
	assert.False(t, CanOverwrite(manual, SourceExternalSync))
	assert.False(t, CanOverwrite(synced, SourceManual))
}

func TestIsTimedIn(t *testing.T) {
	assert.False(t, IsTimedIn(nil))
	assert.False(t, IsTimedIn([]AuditEvent{
		{Action: ActionTimeIn, Time: at(9, 0)},
		{Action: ActionBreak, Time: at(13, 0)},
	}))
	assert.True(t, IsTimedIn([]AuditEvent{
		{Action: ActionTimeIn, Time: at(9, 0)},
		{Action: ActionTimeOut, Time: at(18, 0)},
	}))
	assert.False(t, IsTimedIn([]AuditEvent{
		{Action: ActionTimeIn, Time: at(9, 0)},
		{Action: ActionTimeOut, Time: at(12, 0)},
		{Action: ActionTimeIn, Time: at(13, 0)},
	}))
}

func TestComputeTotalWorked_FromBounds(t *testing.T) {
	assert.Equal(t, "09:00", ComputeTotalWorked(ptr(at(9, 0)), ptr(at(18, 0)), nil))
	assert.Equal(t, "00:00", ComputeTotalWorked(ptr(at(18, 0)), ptr(at(9, 0)), nil))
	assert.Equal(t, "00:00", ComputeTotalWorked(ptr(at(9, 0)), ptr(at(9, 0)), nil))

	// Seconds are truncated, not rounded.
	start := at(9, 0)
	end := start.Add(8*time.Hour + 59*time.Second)
	assert.Equal(t, "08:00", ComputeTotalWorked(&start, &end, nil))
}

func TestComputeTotalWorked_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := at(0, 0)
	for i := 0; i < 1000; i++ {
		start := base.Add(time.Duration(rng.Int63n(int64(24 * time.Hour))))
		end := base.Add(time.Duration(rng.Int63n(int64(48 * time.Hour))))

		got := ComputeTotalWorked(&start, &end, nil)
		if end.Before(start) {
			assert.Equal(t, "00:00", got)
			continue
		}
		minutes := int64(end.Sub(start) / time.Minute)
		d, err := ParseHHMM(got)
		require.NoError(t, err)
		assert.Equal(t, minutes, int64(d/time.Minute))
	}
}

func TestComputeTotalWorked_FromEvents(t *testing.T) {
	history := []AuditEvent{
		{Action: ActionTimeIn, Time: at(9, 0)},
		{Action: ActionBreak, Time: at(12, 30)},
		{Action: ActionResume, Time: at(13, 15)},
		{Action: ActionTimeOut, Time: at(18, 0)},
	}
	assert.Equal(t, "08:15", ComputeTotalWorked(nil, nil, history))

	// Only start known: still falls back to events.
	assert.Equal(t, "08:15", ComputeTotalWorked(ptr(at(9, 0)), nil, history))

	// Open interval contributes nothing.
	assert.Equal(t, "00:00", ComputeTotalWorked(nil, nil, []AuditEvent{{Action: ActionTimeIn, Time: at(9, 0)}}))

	// Close before open is ignored.
	assert.Equal(t, "00:00", ComputeTotalWorked(nil, nil, []AuditEvent{
		{Action: ActionTimeIn, Time: at(10, 0)},
		{Action: ActionTimeOut, Time: at(9, 0)},
	}))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "08:30", FormatSeconds(30600))
	assert.Equal(t, "00:00", FormatSeconds(59))
	assert.Equal(t, "00:01", FormatSeconds(60))
	assert.Equal(t, "25:00", FormatSeconds(90000))
	assert.Equal(t, "00:00", FormatSeconds(-10))
}

func TestFormatReportDuration(t *testing.T) {
	assert.Equal(t, "8h", FormatReportDuration(8*time.Hour))
	assert.Equal(t, "8h 30min", FormatReportDuration(8*time.Hour+30*time.Minute))
	assert.Equal(t, "0h", FormatReportDuration(0))
	assert.Equal(t, "0h 5min", FormatReportDuration(5*time.Minute))
	assert.Equal(t, "41h 15min", FormatReportDuration(41*time.Hour+15*time.Minute))
}

func TestParseHHMM(t *testing.T) {
	d, err := ParseHHMM("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour+30*time.Minute, d)

	d, err = ParseHHMM("120:05")
	require.NoError(t, err)
	assert.Equal(t, 120*time.Hour+5*time.Minute, d)

	for _, bad := range []string{"", "8", "aa:bb", "08:60", "-1:00"} {
		_, err := ParseHHMM(bad)
		assert.Error(t, err, bad)
	}
}

func TestConvertAuditBatch(t *testing.T) {
	n := civiltime.NewNormalizer(5*time.Hour + 30*time.Minute)
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	comment := "forgot badge"

	events := ConvertAuditBatch(n, []AuditEventInput{
		{Action: ActionTimeIn, Clock: civiltime.WallClock{Hour: 9}, Comment: &comment},
		{Action: ActionTimeOut, Clock: civiltime.WallClock{Hour: 18}, Reason: ptr("left early")},
	}, date)

	require.Len(t, events, 2)
	assert.Equal(t, ActionTimeIn, events[0].Action)
	assert.Equal(t, time.Date(2024, 1, 15, 3, 30, 0, 0, time.UTC), events[0].Time)
	assert.Equal(t, &comment, events[0].Comment)
	assert.Equal(t, ActionTimeOut, events[1].Action)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC), events[1].Time)
	assert.Equal(t, "left early", *events[1].Reason)
}

func TestRecord_MatchesSyncState(t *testing.T) {
	start, end := at(9, 30), at(18, 0)
	events := SyncedEvents(start, end)
	rec := &Record{
		StartTime:   &start,
		EndTime:     &end,
		TotalWorked: "08:30",
		Location:    ptr(SyncLocation),
		Source:      SourceExternalSync,
		AuditEvents: SyncedEvents(start, end),
	}

	assert.True(t, rec.MatchesSyncState(start, end, "08:30", events))
	assert.False(t, rec.MatchesSyncState(start, end.Add(time.Minute), "08:31", SyncedEvents(start, end.Add(time.Minute))))
	assert.False(t, rec.MatchesSyncState(start, end, "08:29", events))

	rec.AuditEvents = rec.AuditEvents[:1]
	assert.False(t, rec.MatchesSyncState(start, end, "08:30", events))
}
