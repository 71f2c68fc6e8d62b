package services

import (
	"cotcli/internal/frame"
)

// Row is one table row keyed by column name, ready for JSON encoding.
type Row map[string]any

// rowsOf converts the given rows of f, restricted to cols when non-empty.
func rowsOf(f *frame.Frame, rows []int, cols []string) []Row {
	if len(cols) == 0 {
		cols = f.Columns()
	}
	columns := make([]*frame.Column, 0, len(cols))
	for _, name := range cols {
		if c, ok := f.Column(name); ok {
			columns = append(columns, c)
		}
	}

	out := make([]Row, 0, len(rows))
	for _, i := range rows {
		k := f.Key(i)
		row := make(Row, len(columns)+2)
		row[frame.MarketColumn] = k.Market
		row[frame.DateColumn] = k.Date.Format(frame.DateLayout)
		for _, c := range columns {
			row[c.Name] = c.Value(i)
		}
		out = append(out, row)
	}
	return out
}

// cell renders a value as text; missing columns read as empty.
func cell(f *frame.Frame, name string, i int) string {
	c, ok := f.Column(name)
	if !ok {
		return ""
	}
	return c.Cell(i)
}
