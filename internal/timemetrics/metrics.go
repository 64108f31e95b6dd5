// Package timemetrics derives labor-compliance fields from a single
// employee's shift state. Everything here is a pure function of the entry,
// the evaluation instant and the fixed thresholds below.
package timemetrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	LunchThreshold    = 4 * time.Hour
	LunchOverdueAfter = 5 * time.Hour
	DailyOvertime     = 8 * time.Hour
	WeeklyOvertime    = 40 * time.Hour
)

var (
	ErrMissingClockIn  = errors.New("missing clock-in")
	ErrClockInInFuture = errors.New("clock-in is after evaluation time")
	ErrInvalidInterval = errors.New("clock-out precedes clock-in")
)

type Status string

const (
	StatusClockedIn Status = "Clocked In"
	StatusOnBreak   Status = "On Lunch"
	StatusOff       Status = "Off"
)

// Break is a recorded break. A nil End means the break is still running.
type Break struct {
	Start time.Time
	End   *time.Time
}

func (b Break) Open() bool {
	return b.End == nil
}

func (b Break) duration(now time.Time) time.Duration {
	return b.overlap(b.Start, now, now)
}

// overlap returns how much of the break falls inside [from, to]. Open
// breaks are treated as ending at now.
func (b Break) overlap(from, to, now time.Time) time.Duration {
	end := now
	if b.End != nil {
		end = *b.End
	}
	start := b.Start
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// Shift is a completed clock-in/clock-out segment earlier in the day.
type Shift struct {
	Start time.Time
	End   time.Time
}

type TimeEntry struct {
	UserID      int64
	FirstName   string
	LastInitial string
	StoreID     string

	// ClockIn is the start of the latest shift segment. ClockOut is set
	// once that segment has ended.
	ClockIn  *time.Time
	ClockOut *time.Time

	Breaks      []Break
	PriorShifts []Shift

	// WeeklyTotal comes from the upstream weekly aggregate.
	WeeklyTotal time.Duration
}

func (e TimeEntry) DisplayName() string {
	first := strings.TrimSpace(e.FirstName)
	initial := strings.TrimSpace(e.LastInitial)
	if initial == "" {
		return first
	}
	return strings.TrimSpace(first + " " + initial)
}

// LastInitialOf returns the upper-cased first letter of a last name.
func LastInitialOf(lastName string) string {
	trimmed := strings.TrimSpace(lastName)
	if trimmed == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(r))
}

type LunchStatus struct {
	Label string
	Class string
}

type DerivedMetrics struct {
	Status Status

	// Segment is the raw elapsed time of the open segment, zero when off.
	Segment time.Duration

	TimeOnClock    time.Duration
	TotalDaily     time.Duration
	BreakTotal     time.Duration
	OnBreak        bool
	BreakTaken     bool
	LunchNeeded    bool
	Overtime       bool
	OvertimeAmount time.Duration
	Lunch          LunchStatus
}

func Compute(entry TimeEntry, now time.Time) (DerivedMetrics, error) {
	if entry.ClockIn == nil || entry.ClockIn.IsZero() {
		return DerivedMetrics{}, ErrMissingClockIn
	}
	clockIn := *entry.ClockIn
	if clockIn.After(now) {
		return DerivedMetrics{}, fmt.Errorf("%w: %s > %s", ErrClockInInFuture, clockIn.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	segmentEnd := now
	if entry.ClockOut != nil {
		if entry.ClockOut.Before(clockIn) {
			return DerivedMetrics{}, ErrInvalidInterval
		}
		if entry.ClockOut.Before(now) {
			segmentEnd = *entry.ClockOut
		}
	}

	var m DerivedMetrics
	m.TimeOnClock = worked(clockIn, segmentEnd, entry.Breaks, now)
	m.TotalDaily = m.TimeOnClock
	for _, shift := range entry.PriorShifts {
		if !shift.End.After(shift.Start) {
			continue
		}
		m.TotalDaily += worked(shift.Start, shift.End, entry.Breaks, now)
	}

	for _, b := range entry.Breaks {
		m.BreakTotal += b.duration(now)
		if b.Open() {
			m.OnBreak = true
		}
	}
	m.BreakTaken = len(entry.Breaks) > 0

	switch {
	case entry.ClockOut != nil:
		m.Status = StatusOff
	case m.OnBreak:
		m.Status = StatusOnBreak
		m.Segment = now.Sub(clockIn)
	default:
		m.Status = StatusClockedIn
		m.Segment = now.Sub(clockIn)
	}

	m.Lunch = LunchStatusFor(m.TimeOnClock, m.BreakTaken)
	m.LunchNeeded = !m.BreakTaken && m.TimeOnClock >= LunchThreshold
	m.Overtime = m.TotalDaily > DailyOvertime || entry.WeeklyTotal >= WeeklyOvertime
	m.OvertimeAmount = maxDuration(m.TotalDaily-DailyOvertime, entry.WeeklyTotal-WeeklyOvertime, 0)
	return m, nil
}

// worked is the length of [from, to] minus every break overlapping it.
func worked(from, to time.Time, breaks []Break, now time.Time) time.Duration {
	if !to.After(from) {
		return 0
	}
	total := to.Sub(from)
	for _, b := range breaks {
		total -= b.overlap(from, to, now)
	}
	if total < 0 {
		return 0
	}
	return total
}

func LunchStatusFor(timeOnClock time.Duration, breakTaken bool) LunchStatus {
	switch {
	case breakTaken:
		return LunchStatus{Label: "Taken", Class: "lunch-ok"}
	case timeOnClock < LunchThreshold:
		return LunchStatus{Label: "Not Yet Due", Class: "lunch-ok"}
	case timeOnClock < LunchOverdueAfter:
		return LunchStatus{Label: "Due Now", Class: "lunch-due"}
	default:
		return LunchStatus{Label: "Overdue by " + FormatClock(timeOnClock-LunchOverdueAfter), Class: "lunch-overdue"}
	}
}

type Row struct {
	Entry   TimeEntry
	Metrics DerivedMetrics
}

// Evaluate computes every entry and drops the ones that cannot be computed,
// such as entries without a clock-in. Rows come back longest open segment
// first.
func Evaluate(entries []TimeEntry, now time.Time) []Row {
	rows := make([]Row, 0, len(entries))
	for _, entry := range entries {
		m, err := Compute(entry, now)
		if err != nil {
			continue
		}
		rows = append(rows, Row{Entry: entry, Metrics: m})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Metrics.Segment != rows[j].Metrics.Segment {
			return rows[i].Metrics.Segment > rows[j].Metrics.Segment
		}
		return strings.ToLower(rows[i].Entry.DisplayName()) < strings.ToLower(rows[j].Entry.DisplayName())
	})
	return rows
}

// FormatClock renders a duration as H:MM without a leading zero on hours.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int64(d / time.Minute)
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

func maxDuration(values ...time.Duration) time.Duration {
	out := values[0]
	for _, v := range values[1:] {
		if v > out {
			out = v
		}
	}
	return out
}
