// Package stats aggregates logged sessions into summaries and renders them.
package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// column describes one table column. Numeric columns align right.
type column struct {
	title string
	right bool
}

// renderTable lays rows out under cols. Widths are terminal cells, so
// accented subject names such as "Gaeilge Ardleibhéal" line up.
func renderTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range rows {
		for i := range cols {
			if w := runewidth.StringWidth(cell(row, i)); w > widths[i] {
				widths[i] = w
			}
		}
	}

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, renderRow(cols, widths, titles))
	for _, row := range rows {
		lines = append(lines, renderRow(cols, widths, row))
	}
	return lines
}

func renderRow(cols []column, widths []int, row []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		value := cell(row, i)
		pad := strings.Repeat(" ", max(0, widths[i]-runewidth.StringWidth(value)))
		if c.right {
			parts[i] = pad + value
		} else {
			parts[i] = value + pad
		}
	}
	return strings.Join(parts, " ")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
