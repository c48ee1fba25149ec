package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table renders rows in aligned columns. Cells may contain ANSI escape
// sequences; widths are computed on the visible text.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends one row. Missing cells render empty; extra cells are kept
// and widen the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// visibleWidth measures a cell's display width, skipping ANSI escapes.
func visibleWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			width += runewidth.RuneWidth(r)
		}
	}
	return width
}

func pad(s string, width int) string {
	gap := width - visibleWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) {
	columns := len(t.headers)
	for _, row := range t.rows {
		if len(row) > columns {
			columns = len(row)
		}
	}
	if columns == 0 {
		return
	}

	widths := make([]int, columns)
	measure := func(row []string) {
		for i, cell := range row {
			if cw := visibleWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}

	writeRow := func(row []string, style func(string) string) {
		parts := make([]string, columns)
		for i := 0; i < columns; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if style != nil {
				cell = style(cell)
			}
			parts[i] = pad(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	if len(t.headers) > 0 {
		writeRow(t.headers, func(s string) string { return headerStyle.Render(s) })
	}
	for _, row := range t.rows {
		writeRow(row, nil)
	}
}
