package connecteam

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

const (
	usersPageSize = 200
	maxUserPages  = 50
	dateLayout    = "2006-01-02"
)

type User struct {
	UserID    int64  `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type usersResponse struct {
	Data struct {
		Users []User `json:"users"`
	} `json:"data"`
}

// Stamp is a Connecteam timestamp object. A zero Timestamp means absent.
type Stamp struct {
	Timestamp int64  `json:"timestamp"`
	Timezone  string `json:"timezone,omitempty"`
}

type Interval struct {
	Start *Stamp `json:"start"`
	End   *Stamp `json:"end"`
}

func (i Interval) StartTime() (time.Time, bool) {
	return stampTime(i.Start)
}

func (i Interval) EndTime() (time.Time, bool) {
	return stampTime(i.End)
}

func stampTime(s *Stamp) (time.Time, bool) {
	if s == nil || s.Timestamp <= 0 {
		return time.Time{}, false
	}
	return time.Unix(s.Timestamp, 0), true
}

type UserActivity struct {
	UserID       int64      `json:"userId"`
	Shifts       []Interval `json:"shifts"`
	ManualBreaks []Interval `json:"manualBreaks"`
}

type activitiesResponse struct {
	Data struct {
		TimeActivitiesByUsers []UserActivity `json:"timeActivitiesByUsers"`
	} `json:"data"`
}

// WeeklyTotal is a user's net worked time per day and for the week so far.
type WeeklyTotal struct {
	Daily map[string]time.Duration
	Week  time.Duration
}

// ActiveUsers returns every active user keyed by id, following pagination.
func (c *Client) ActiveUsers(ctx context.Context) (map[int64]User, error) {
	users := make(map[int64]User)
	for page := 0; page < maxUserPages; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(usersPageSize))
		query.Set("offset", strconv.Itoa(page*usersPageSize))
		query.Set("order", "asc")
		query.Set("userStatus", "active")

		var payload usersResponse
		if err := c.get(ctx, "users", "/users/v1/users", query, &payload); err != nil {
			return nil, err
		}
		for _, u := range payload.Data.Users {
			users[u.UserID] = u
		}
		if len(payload.Data.Users) < usersPageSize {
			break
		}
	}
	return users, nil
}

// TimeActivities returns the shifts and breaks recorded on a time clock for
// one local calendar day.
func (c *Client) TimeActivities(ctx context.Context, clockID int64, day time.Time) ([]UserActivity, error) {
	ds := day.In(c.loc).Format(dateLayout)
	query := url.Values{}
	query.Set("startDate", ds)
	query.Set("endDate", ds)

	var payload activitiesResponse
	path := "/time-clock/v1/time-clocks/" + strconv.FormatInt(clockID, 10) + "/time-activities"
	if err := c.get(ctx, "time_activities", path, query, &payload); err != nil {
		return nil, err
	}
	return payload.Data.TimeActivitiesByUsers, nil
}

// WeekActivities fetches each day from Monday of day's week through day.
func (c *Client) WeekActivities(ctx context.Context, clockID int64, day time.Time) (map[string][]UserActivity, error) {
	days := weekDays(day.In(c.loc))
	out := make(map[string][]UserActivity, len(days))
	for _, d := range days {
		activities, err := c.TimeActivities(ctx, clockID, d)
		if err != nil {
			return nil, err
		}
		out[d.Format(dateLayout)] = activities
	}
	return out, nil
}

func (c *Client) WeeklyTotals(ctx context.Context, clockID int64, day time.Time) (map[int64]WeeklyTotal, error) {
	week, err := c.WeekActivities(ctx, clockID, day)
	if err != nil {
		return nil, err
	}
	return SumWeek(week, c.now()), nil
}

// SumWeek totals net worked time per user. Open shifts run to now and only
// closed breaks are subtracted.
func SumWeek(week map[string][]UserActivity, now time.Time) map[int64]WeeklyTotal {
	totals := make(map[int64]WeeklyTotal)
	for ds, activities := range week {
		for _, ua := range activities {
			net := netWorked(ua, now)
			entry, ok := totals[ua.UserID]
			if !ok {
				entry = WeeklyTotal{Daily: make(map[string]time.Duration)}
			}
			entry.Daily[ds] += net
			entry.Week += net
			totals[ua.UserID] = entry
		}
	}
	return totals
}

func netWorked(ua UserActivity, now time.Time) time.Duration {
	var total time.Duration
	for _, shift := range ua.Shifts {
		start, ok := shift.StartTime()
		if !ok {
			continue
		}
		end, ok := shift.EndTime()
		if !ok {
			end = now
		}
		if end.After(start) {
			total += end.Sub(start)
		}
	}
	for _, br := range ua.ManualBreaks {
		start, okStart := br.StartTime()
		end, okEnd := br.EndTime()
		if okStart && okEnd && end.After(start) {
			total -= end.Sub(start)
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

// weekDays returns local midnights from Monday through day, inclusive.
func weekDays(day time.Time) []time.Time {
	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	offset := (int(midnight.Weekday()) + 6) % 7
	start := midnight.AddDate(0, 0, -offset)
	days := make([]time.Time, 0, offset+1)
	for i := 0; i <= offset; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}
