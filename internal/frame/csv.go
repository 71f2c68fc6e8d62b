package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Key column names on disk.
const (
	MarketColumn = "market_key"
	DateColumn   = "report_date"
)

// FormatFloat renders a value with the shortest exact representation. NaN
// is written as an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Cell renders row i of the column.
func (c *Column) Cell(i int) string {
	switch c.Kind {
	case Float:
		return FormatFloat(c.Floats[i])
	case String:
		return c.Strings[i]
	case Bool:
		return strconv.FormatBool(c.Bools[i])
	default:
		return strconv.FormatInt(c.Ints[i], 10)
	}
}

// WriteCSV writes the frame with market_key and report_date as the leading
// columns. Output is byte-for-byte deterministic for equal frames.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{MarketColumn, DateColumn}, f.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(header))
	for i, k := range f.keys {
		record[0] = k.Market
		record[1] = k.Date.Format(DateLayout)
		for j, c := range f.cols {
			record[j+2] = c.Cell(i)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseDate accepts a calendar date with an optional time part.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseFloat coerces a cell to a number; empty or non-numeric cells are NaN.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ReadCSV loads a frame written by WriteCSV. Column kinds are inferred: a
// column whose non-empty cells are all true/false is Bool, all numeric is
// Float, anything else is String.
func ReadCSV(name string, r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty file", name)
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	mi, di := -1, -1
	for i, h := range header {
		switch h {
		case MarketColumn:
			mi = i
		case DateColumn:
			di = i
		}
	}
	if mi < 0 || di < 0 {
		return nil, fmt.Errorf("read %s: missing %s or %s column", name, MarketColumn, DateColumn)
	}

	rows := records[1:]
	keys := make([]Key, len(rows))
	for i, rec := range rows {
		d, err := ParseDate(rec[di])
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", name, i+1, err)
		}
		keys[i] = NewKey(rec[mi], d)
	}

	f := New(name, keys)
	for j, h := range header {
		if j == mi || j == di {
			continue
		}
		cells := make([]string, len(rows))
		for i, rec := range rows {
			cells[i] = rec[j]
		}
		f.set(inferColumn(h, cells))
	}
	return f, nil
}

func inferColumn(name string, cells []string) *Column {
	isBool, isFloat := true, true
	for _, s := range cells {
		if s == "" {
			continue
		}
		if s != "true" && s != "false" {
			isBool = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			isFloat = false
		}
	}
	switch {
	case isBool && !allEmpty(cells):
		vals := make([]bool, len(cells))
		for i, s := range cells {
			vals[i] = s == "true"
		}
		return &Column{Name: name, Kind: Bool, Bools: vals}
	case isFloat:
		vals := make([]float64, len(cells))
		for i, s := range cells {
			vals[i] = ParseFloat(s)
		}
		return &Column{Name: name, Kind: Float, Floats: vals}
	default:
		return &Column{Name: name, Kind: String, Strings: cells}
	}
}

func allEmpty(cells []string) bool {
	for _, s := range cells {
		if s != "" {
			return false
		}
	}
	return true
}
