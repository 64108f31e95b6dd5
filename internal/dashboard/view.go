package dashboard

import (
	"time"

	"github.com/phillip-england/clockboard/internal/timemetrics"
)

type pageData struct {
	StoreID        string
	StoreName      string
	Employees      []employeeView
	Error          string
	Closed         bool
	RefreshSeconds int
	GeneratedAt    string
	ExportURL      string
}

type employeeView struct {
	Name         string
	Status       string
	StatusClass  string
	SegmentStart string
	TimeOnClock  string
	TotalToday   string
	BreakTaken   string
	OvertimeTime string
	Overtime     bool
	LunchNeeded  bool
	LunchStatus  string
	LunchClass   string
}

func buildEmployeeViews(rows []timemetrics.Row, loc *time.Location) []employeeView {
	views := make([]employeeView, 0, len(rows))
	for _, row := range rows {
		m := row.Metrics
		v := employeeView{
			Name:         row.Entry.DisplayName(),
			Status:       string(m.Status),
			StatusClass:  statusClass(m.Status),
			TimeOnClock:  "0:00",
			TotalToday:   timemetrics.FormatClock(m.TotalDaily),
			BreakTaken:   timemetrics.FormatClock(m.BreakTotal),
			OvertimeTime: timemetrics.FormatClock(m.OvertimeAmount),
			Overtime:     m.Overtime,
			LunchNeeded:  m.LunchNeeded,
			LunchStatus:  m.Lunch.Label,
			LunchClass:   m.Lunch.Class,
		}
		if m.Status != timemetrics.StatusOff {
			v.SegmentStart = formatClockTime(*row.Entry.ClockIn, loc)
			v.TimeOnClock = timemetrics.FormatClock(m.TimeOnClock)
		}
		views = append(views, v)
	}
	return views
}

func statusClass(status timemetrics.Status) string {
	switch status {
	case timemetrics.StatusOnBreak:
		return "status-break"
	case timemetrics.StatusOff:
		return "status-off"
	default:
		return "status-in"
	}
}

// formatClockTime renders a local 12-hour time such as "1:48 PM".
func formatClockTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("3:04 PM")
}
