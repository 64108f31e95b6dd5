package dashboard

import (
	"bytes"
	"math"
	"time"

	"github.com/phillip-england/clockboard/internal/storeconfig"
	"github.com/phillip-england/clockboard/internal/timemetrics"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Timeclock"

var exportHeader = []interface{}{
	"Employee", "Status", "Clock In", "Time On Clock", "Total Today", "Total Hours",
	"Break", "Overtime", "Lunch", "Lunch Needed", "Overtime Reached",
}

// buildWorkbook writes the evaluated rows for one store to a single-sheet
// xlsx workbook.
func buildWorkbook(store storeconfig.Store, rows []timemetrics.Row, now time.Time, loc *time.Location) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}

	title := store.DisplayName() + " as of " + now.In(loc).Format("Jan 2, 2006 3:04 PM")
	if err := f.SetCellValue(exportSheet, "A1", title); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A3", &exportHeader); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A3", "K3", headerStyle); err != nil {
		return nil, err
	}

	for i, v := range buildEmployeeViews(rows, loc) {
		m := rows[i].Metrics
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			v.Name,
			v.Status,
			v.SegmentStart,
			v.TimeOnClock,
			v.TotalToday,
			math.Round(m.TotalDaily.Hours()*100) / 100,
			v.BreakTaken,
			v.OvertimeTime,
			v.LunchStatus,
			yesNo(v.LunchNeeded),
			yesNo(v.Overtime),
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 22); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "B", "K", 14); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
