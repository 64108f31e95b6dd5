package storeconfig

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var headerAliases = map[string]string{
	"store":         "store",
	"store_id":      "store",
	"id":            "store",
	"name":          "name",
	"store_name":    "name",
	"pin":           "pin",
	"time_clock_id": "time_clock_id",
	"timeclock_id":  "time_clock_id",
	"clock_id":      "time_clock_id",
}

func storesFromSpreadsheet(reader io.Reader, filename string) ([]Store, error) {
	rows, err := readRowsFromSpreadsheet(reader, filename)
	if err != nil {
		return nil, err
	}

	headerIdx := -1
	columns := map[string]int{}
	for i, row := range rows {
		found := map[string]int{}
		for j, cell := range row {
			if key, ok := headerAliases[normalizeHeader(cell)]; ok {
				if _, seen := found[key]; !seen {
					found[key] = j
				}
			}
		}
		if _, ok := found["store"]; ok {
			headerIdx = i
			columns = found
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row with a store column")
	}
	for _, required := range []string{"pin", "time_clock_id"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing %s column", required)
		}
	}
	nameIdx, hasName := columns["name"]
	if !hasName {
		nameIdx = -1
	}

	stores := make([]Store, 0, len(rows)-headerIdx-1)
	for n, row := range rows[headerIdx+1:] {
		id := cellValue(row, columns["store"])
		if id == "" {
			continue
		}
		clockID, err := parseClockID(cellValue(row, columns["time_clock_id"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", headerIdx+n+2, err)
		}
		stores = append(stores, Store{
			ID:          id,
			Name:        cellValue(row, nameIdx),
			PIN:         strings.TrimSuffix(cellValue(row, columns["pin"]), ".0"),
			TimeClockID: clockID,
		})
	}
	return stores, nil
}

func readRowsFromSpreadsheet(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls", ".xsl":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		rows := workbook.ReadAllCells(10000)
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("no worksheet found")
		}

		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("worksheet is empty")
		}
		return rows, nil
	}
}

func normalizeHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
