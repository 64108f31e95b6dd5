package connecteam

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/phillip-england/clockboard/internal/storeconfig"
	"github.com/phillip-england/clockboard/internal/timemetrics"
)

// BusinessHours reports whether t falls within store operating hours:
// Monday to Saturday 08:00-18:00 and Sunday 09:00-17:00, local time.
func BusinessHours(t time.Time) bool {
	hour := t.Hour()
	if t.Weekday() == time.Sunday {
		return hour >= 9 && hour < 17
	}
	return hour >= 8 && hour < 18
}

type SourceOptions struct {
	BusinessHoursOnly bool
	Logger            *slog.Logger
}

// Source turns Connecteam activity into timemetrics entries for a store.
type Source struct {
	client            *Client
	businessHoursOnly bool
	logger            *slog.Logger
}

func NewSource(client *Client, opts SourceOptions) *Source {
	logger := opts.Logger
	if logger == nil {
		logger = client.logger
	}
	return &Source{client: client, businessHoursOnly: opts.BusinessHoursOnly, logger: logger}
}

func (s *Source) Location() *time.Location {
	return s.client.loc
}

// Entries fetches today's activity, the week's totals and the user roster
// for the store's time clock. When the source is limited to business hours
// and the stores are closed, it returns ErrOutsideBusinessHours without
// calling upstream.
func (s *Source) Entries(ctx context.Context, store storeconfig.Store) ([]timemetrics.TimeEntry, error) {
	now := s.client.now().In(s.client.loc)
	if s.businessHoursOnly && !BusinessHours(now) {
		s.logger.Debug("outside business hours; skipping upstream fetch", "store", store.ID)
		return nil, ErrOutsideBusinessHours
	}

	week, err := s.client.WeekActivities(ctx, store.TimeClockID, now)
	if err != nil {
		return nil, fmt.Errorf("fetch activities for %s: %w", store.ID, err)
	}
	users, err := s.client.ActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}

	weekly := SumWeek(week, now)
	today := week[now.Format(dateLayout)]
	return BuildEntries(store.ID, today, users, weekly), nil
}

// BuildEntries joins one day of activity with the roster and weekly totals.
// Users with no shifts are skipped. A user whose shifts all lack a start
// time gets a nil ClockIn and is dropped later by timemetrics.Evaluate.
func BuildEntries(storeID string, today []UserActivity, users map[int64]User, weekly map[int64]WeeklyTotal) []timemetrics.TimeEntry {
	entries := make([]timemetrics.TimeEntry, 0, len(today))
	for _, ua := range today {
		if len(ua.Shifts) == 0 {
			continue
		}

		entry := timemetrics.TimeEntry{
			UserID:      ua.UserID,
			StoreID:     storeID,
			WeeklyTotal: weekly[ua.UserID].Week,
		}
		if u, ok := users[ua.UserID]; ok {
			entry.FirstName = u.FirstName
			entry.LastInitial = timemetrics.LastInitialOf(u.LastName)
		} else {
			entry.FirstName = strconv.FormatInt(ua.UserID, 10)
		}

		type segment struct {
			start time.Time
			end   *time.Time
		}
		segments := make([]segment, 0, len(ua.Shifts))
		for _, shift := range ua.Shifts {
			start, ok := shift.StartTime()
			if !ok {
				continue
			}
			seg := segment{start: start}
			if end, ok := shift.EndTime(); ok {
				seg.end = &end
			}
			segments = append(segments, seg)
		}
		sort.Slice(segments, func(i, j int) bool { return segments[i].start.Before(segments[j].start) })

		if n := len(segments); n > 0 {
			latest := segments[n-1]
			clockIn := latest.start
			entry.ClockIn = &clockIn
			entry.ClockOut = latest.end
			for _, seg := range segments[:n-1] {
				if seg.end == nil {
					continue
				}
				entry.PriorShifts = append(entry.PriorShifts, timemetrics.Shift{Start: seg.start, End: *seg.end})
			}
		}

		for _, br := range ua.ManualBreaks {
			start, ok := br.StartTime()
			if !ok {
				continue
			}
			b := timemetrics.Break{Start: start}
			if end, ok := br.EndTime(); ok {
				b.End = &end
			}
			entry.Breaks = append(entry.Breaks, b)
		}

		entries = append(entries, entry)
	}
	return entries
}
