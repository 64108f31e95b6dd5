package clockboardcli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/phillip-england/clockboard/internal/security"
	"github.com/phillip-england/clockboard/internal/storeconfig"
)

var summaryHeader = []string{"STORE", "NAME", "TIME CLOCK", "PIN"}

// writeStoreSummary prints one aligned row per store. Names can hold wide
// runes, so padding goes by display width.
func writeStoreSummary(w io.Writer, path string, cfg *storeconfig.Config) {
	rows := make([][]string, 0, len(cfg.Stores)+1)
	rows = append(rows, summaryHeader)
	for _, s := range cfg.Stores {
		pin := "plaintext"
		if security.IsHashed(s.PIN) {
			pin = "hashed"
		}
		rows = append(rows, []string{s.ID, s.DisplayName(), strconv.FormatInt(s.TimeClockID, 10), pin})
	}

	widths := make([]int, len(summaryHeader))
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	fmt.Fprintf(w, "%s: %d store(s) ok\n", path, len(cfg.Stores))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.Join(cells, "  "))
	}
}
