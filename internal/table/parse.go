// Package table turns OCR text into rows and columns and writes them as
// XLSX or CSV.
package table

import (
	"fmt"
	"regexp"
	"strings"

	"codeberg.org/snonux/toolbelt/internal/apperr"
)

// ErrNoTable is returned when text holds no usable line.
var ErrNoTable = fmt.Errorf("no tabular data found")

var multiSpace = regexp.MustCompile(`\s{2,}`)

// Table is a header row plus equally wide data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Width is the number of columns.
func (t *Table) Width() int { return len(t.Headers) }

// Parse applies the line heuristic:
//
//  1. split on newlines, skip blank lines and lines starting with "---"
//  2. split a line on tabs if it has one, else on "|" if it has one,
//     else on runs of two or more spaces; trim cells and drop empty ones
//  3. if no line produced cells, every remaining line is a one-cell row
//  4. pad every row to the widest row
//  5. the first row is the header when none of its cells is empty,
//     otherwise headers are Column1..N and every row is data
func Parse(text string) (*Table, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	var rows [][]string
	for _, line := range lines {
		if skipLine(line) {
			continue
		}
		if cells := splitLine(line); len(cells) > 0 {
			rows = append(rows, cells)
		}
	}

	if len(rows) == 0 {
		for _, line := range lines {
			if skipLine(line) {
				continue
			}
			rows = append(rows, []string{strings.TrimSpace(line)})
		}
	}

	if len(rows) == 0 {
		return nil, apperr.E("table.parse", apperr.KindInvalid, ErrNoTable)
	}

	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range rows {
		rows[i] = pad(r, width)
	}

	t := &Table{}
	if allFilled(rows[0]) {
		t.Headers = rows[0]
		rows = rows[1:]
	} else {
		t.Headers = DefaultHeaders(width)
	}

	for _, r := range rows {
		if !allEmpty(r) {
			t.Rows = append(t.Rows, r)
		}
	}
	return t, nil
}

// DefaultHeaders returns Column1..Column<n>.
func DefaultHeaders(n int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = fmt.Sprintf("Column%d", i+1)
	}
	return h
}

func skipLine(line string) bool {
	s := strings.TrimSpace(line)
	return s == "" || strings.HasPrefix(s, "---")
}

func splitLine(line string) []string {
	var parts []string
	switch {
	case strings.Contains(line, "\t"):
		parts = strings.Split(line, "\t")
	case strings.Contains(line, "|"):
		parts = strings.Split(line, "|")
	default:
		parts = multiSpace.Split(line, -1)
	}

	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func allFilled(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) == "" {
			return false
		}
	}
	return true
}

func allEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
