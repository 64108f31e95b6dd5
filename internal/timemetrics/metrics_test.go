package timemetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pacific = mustLocation("America/Los_Angeles")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("PDT", -7*60*60)
	}
	return loc
}

func at(hour, minute, second int) time.Time {
	return time.Date(2025, time.June, 10, hour, minute, second, 0, pacific)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func TestComputeLunchThreshold(t *testing.T) {
	clockIn := at(9, 0, 0)
	entry := TimeEntry{FirstName: "Ana", LastInitial: "R", ClockIn: &clockIn}

	m, err := Compute(entry, clockIn.Add(3*time.Hour+59*time.Minute))
	require.NoError(t, err)
	assert.False(t, m.LunchNeeded)
	assert.Equal(t, "Not Yet Due", m.Lunch.Label)

	m, err = Compute(entry, clockIn.Add(4*time.Hour))
	require.NoError(t, err)
	assert.True(t, m.LunchNeeded)
	assert.Equal(t, "Due Now", m.Lunch.Label)
	assert.Equal(t, "lunch-due", m.Lunch.Class)
}

func TestComputeDailyOvertimeBoundary(t *testing.T) {
	clockIn := at(6, 0, 0)
	entry := TimeEntry{FirstName: "Ben", ClockIn: &clockIn}

	m, err := Compute(entry, clockIn.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, m.TotalDaily)
	assert.False(t, m.Overtime)
	assert.Zero(t, m.OvertimeAmount)

	m, err = Compute(entry, clockIn.Add(8*time.Hour+time.Second))
	require.NoError(t, err)
	assert.True(t, m.Overtime)
	assert.Equal(t, time.Second, m.OvertimeAmount)
}

func TestComputeWeeklyOvertimeIgnoresDaily(t *testing.T) {
	clockIn := at(9, 0, 0)
	entry := TimeEntry{FirstName: "Cy", ClockIn: &clockIn, WeeklyTotal: 40 * time.Hour}

	m, err := Compute(entry, clockIn.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, m.TotalDaily)
	assert.True(t, m.Overtime)
	assert.Zero(t, m.OvertimeAmount)

	entry.WeeklyTotal = 40*time.Hour - time.Second
	m, err = Compute(entry, clockIn.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, m.Overtime)
}

func TestComputeOpenBreakStopsAccrual(t *testing.T) {
	clockIn := at(9, 0, 0)
	entry := TimeEntry{
		FirstName: "Dee",
		ClockIn:   &clockIn,
		Breaks:    []Break{{Start: at(12, 0, 0)}},
	}

	atBreakStart, err := Compute(entry, at(12, 0, 0))
	require.NoError(t, err)
	later, err := Compute(entry, at(12, 40, 0))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Hour, atBreakStart.TimeOnClock)
	assert.Equal(t, 3*time.Hour, later.TimeOnClock)
	assert.Equal(t, 40*time.Minute, later.BreakTotal)
	assert.True(t, later.OnBreak)
	assert.Equal(t, StatusOnBreak, later.Status)
}

func TestComputeClosedBreaksAreSubtracted(t *testing.T) {
	clockIn := at(8, 0, 0)
	entry := TimeEntry{
		FirstName: "Eli",
		ClockIn:   &clockIn,
		Breaks: []Break{
			{Start: at(10, 0, 0), End: ptr(at(10, 10, 0))},
			{Start: at(12, 0, 0), End: ptr(at(12, 30, 0))},
		},
	}

	m, err := Compute(entry, at(14, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour+20*time.Minute, m.TimeOnClock)
	assert.Equal(t, 40*time.Minute, m.BreakTotal)
	assert.True(t, m.BreakTaken)
	assert.False(t, m.LunchNeeded)
	assert.Equal(t, "Taken", m.Lunch.Label)
	assert.Equal(t, StatusClockedIn, m.Status)
}

func TestComputeAnyBreakClearsLunchWarning(t *testing.T) {
	clockIn := at(8, 0, 0)
	entry := TimeEntry{
		FirstName: "Fay",
		ClockIn:   &clockIn,
		Breaks:    []Break{{Start: at(8, 30, 0), End: ptr(at(8, 35, 0))}},
	}

	m, err := Compute(entry, at(15, 0, 0))
	require.NoError(t, err)
	assert.Greater(t, m.TimeOnClock, LunchThreshold)
	assert.False(t, m.LunchNeeded)

	entry.Breaks = []Break{{Start: at(14, 50, 0)}}
	m, err = Compute(entry, at(15, 0, 0))
	require.NoError(t, err)
	assert.True(t, m.BreakTaken)
	assert.False(t, m.LunchNeeded)
	assert.Equal(t, StatusOnBreak, m.Status)
}

func TestComputeMissingClockIn(t *testing.T) {
	_, err := Compute(TimeEntry{FirstName: "Gus"}, at(12, 0, 0))
	assert.ErrorIs(t, err, ErrMissingClockIn)

	zero := time.Time{}
	_, err = Compute(TimeEntry{FirstName: "Gus", ClockIn: &zero}, at(12, 0, 0))
	assert.ErrorIs(t, err, ErrMissingClockIn)
}

func TestComputeFutureClockIn(t *testing.T) {
	clockIn := at(13, 0, 0)
	_, err := Compute(TimeEntry{ClockIn: &clockIn}, at(12, 0, 0))
	assert.ErrorIs(t, err, ErrClockInInFuture)
}

func TestComputeClockOutBeforeClockIn(t *testing.T) {
	clockIn := at(13, 0, 0)
	_, err := Compute(TimeEntry{ClockIn: &clockIn, ClockOut: ptr(at(12, 0, 0))}, at(14, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestComputeWorkedExample(t *testing.T) {
	clockIn := at(9, 0, 0)
	m, err := Compute(TimeEntry{FirstName: "Hal", ClockIn: &clockIn}, at(13, 15, 0))
	require.NoError(t, err)

	assert.Equal(t, 4*time.Hour+15*time.Minute, m.TimeOnClock)
	assert.Equal(t, "4:15", FormatClock(m.TimeOnClock))
	assert.True(t, m.LunchNeeded)
	assert.False(t, m.Overtime)
}

func TestComputeSplitShiftDailyTotal(t *testing.T) {
	clockIn := at(14, 0, 0)
	entry := TimeEntry{
		FirstName:   "Ivy",
		ClockIn:     &clockIn,
		PriorShifts: []Shift{{Start: at(6, 0, 0), End: at(11, 0, 0)}},
		Breaks:      []Break{{Start: at(10, 0, 0), End: ptr(at(10, 30, 0))}},
	}

	m, err := Compute(entry, at(18, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, m.TimeOnClock)
	assert.Equal(t, 8*time.Hour+30*time.Minute, m.TotalDaily)
	assert.True(t, m.Overtime)
	assert.Equal(t, 30*time.Minute, m.OvertimeAmount)
}

func TestComputeClockedOut(t *testing.T) {
	clockIn := at(6, 0, 0)
	entry := TimeEntry{FirstName: "Jo", ClockIn: &clockIn, ClockOut: ptr(at(9, 0, 0))}

	m, err := Compute(entry, at(12, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusOff, m.Status)
	assert.Equal(t, 3*time.Hour, m.TimeOnClock)
	assert.Zero(t, m.Segment)
}

func TestLunchStatusOverdue(t *testing.T) {
	status := LunchStatusFor(6*time.Hour+5*time.Minute, false)
	assert.Equal(t, "Overdue by 1:05", status.Label)
	assert.Equal(t, "lunch-overdue", status.Class)
}

func TestEvaluateOmitsMissingClockInAndSorts(t *testing.T) {
	now := at(13, 0, 0)
	early := at(7, 0, 0)
	late := at(11, 0, 0)
	entries := []TimeEntry{
		{FirstName: "Late", ClockIn: &late},
		{FirstName: "Missing"},
		{FirstName: "Early", ClockIn: &early},
	}

	var rows []Row
	require.NotPanics(t, func() { rows = Evaluate(entries, now) })
	require.Len(t, rows, 2)
	assert.Equal(t, "Early", rows[0].Entry.FirstName)
	assert.Equal(t, "Late", rows[1].Entry.FirstName)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Kim L", TimeEntry{FirstName: "Kim", LastInitial: "L"}.DisplayName())
	assert.Equal(t, "Kim", TimeEntry{FirstName: "Kim"}.DisplayName())
	assert.Equal(t, "Ó", LastInitialOf(" óscar"))
	assert.Equal(t, "", LastInitialOf(""))
}
