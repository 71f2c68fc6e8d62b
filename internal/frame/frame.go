package frame

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Key identifies one row: a market at one weekly report date.
type Key struct {
	Market string
	Date   time.Time
}

// NewKey builds a key with the date truncated to a UTC calendar day.
func NewKey(market string, date time.Time) Key {
	y, m, d := date.Date()
	return Key{Market: market, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Less orders keys by market, then date.
func (k Key) Less(o Key) bool {
	if k.Market != o.Market {
		return k.Market < o.Market
	}
	return k.Date.Before(o.Date)
}

func (k Key) String() string {
	return k.Market + "@" + k.Date.Format(DateLayout)
}

// DateLayout is the on-disk representation of report dates.
const DateLayout = "2006-01-02"

// Kind is the value type held by a column.
type Kind int

const (
	Float Kind = iota
	String
	Bool
	Int
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Int:
		return "int"
	default:
		return "unknown"
	}
}

// Column is a named, typed vector. Exactly one of the slices is populated,
// matching Kind.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
	Bools   []bool
	Ints    []int64
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Float:
		return len(c.Floats)
	case String:
		return len(c.Strings)
	case Bool:
		return len(c.Bools)
	default:
		return len(c.Ints)
	}
}

// Value returns row i as a plain Go value. NaN and infinite floats are nil
// so the result always encodes as JSON.
func (c *Column) Value(i int) any {
	switch c.Kind {
	case Float:
		v := c.Floats[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case String:
		return c.Strings[i]
	case Bool:
		return c.Bools[i]
	default:
		return c.Ints[i]
	}
}

// Frame is an in-memory table keyed by (market, report date). Row order is
// significant: builders sort by key once and every derived frame keeps that
// order. Column order is insertion order.
type Frame struct {
	name  string
	keys  []Key
	cols  []*Column
	index map[string]int
}

// New creates a frame over the given keys. The keys slice is owned by the
// frame afterwards.
func New(name string, keys []Key) *Frame {
	return &Frame{
		name:  name,
		keys:  keys,
		index: make(map[string]int),
	}
}

// Name returns the table name used in logs and error messages.
func (f *Frame) Name() string { return f.name }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.keys) }

// Keys returns the row keys. Callers must not modify the slice.
func (f *Frame) Keys() []Key { return f.keys }

// Key returns the key of row i.
func (f *Frame) Key(i int) Key { return f.keys[i] }

// Columns returns column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the frame holds a column.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

func (f *Frame) set(c *Column) {
	if c.Len() != len(f.keys) {
		panic(fmt.Sprintf("frame %s: column %s has %d values for %d rows", f.name, c.Name, c.Len(), len(f.keys)))
	}
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
}

// SetFloat adds or replaces a float column. It panics when the length does
// not match the row count.
func (f *Frame) SetFloat(name string, vals []float64) {
	f.set(&Column{Name: name, Kind: Float, Floats: vals})
}

// SetString adds or replaces a string column.
func (f *Frame) SetString(name string, vals []string) {
	f.set(&Column{Name: name, Kind: String, Strings: vals})
}

// SetBool adds or replaces a bool column.
func (f *Frame) SetBool(name string, vals []bool) {
	f.set(&Column{Name: name, Kind: Bool, Bools: vals})
}

// SetInt adds or replaces an integer column.
func (f *Frame) SetInt(name string, vals []int64) {
	f.set(&Column{Name: name, Kind: Int, Ints: vals})
}

// Float returns a float column's values.
func (f *Frame) Float(name string) ([]float64, bool) {
	c, ok := f.Column(name)
	if !ok || c.Kind != Float {
		return nil, false
	}
	return c.Floats, true
}

// MustFloat returns a float column or panics. Stage builders use it for
// columns produced by earlier stages in the same run.
func (f *Frame) MustFloat(name string) []float64 {
	v, ok := f.Float(name)
	if !ok {
		panic(fmt.Sprintf("frame %s: no float column %q", f.name, name))
	}
	return v
}

// FloatOrNaN returns a float column, or an all-NaN series when it is absent.
func (f *Frame) FloatOrNaN(name string) []float64 {
	if v, ok := f.Float(name); ok {
		return v
	}
	out := make([]float64, len(f.keys))
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// MustString returns a string column or panics.
func (f *Frame) MustString(name string) []string {
	c, ok := f.Column(name)
	if !ok || c.Kind != String {
		panic(fmt.Sprintf("frame %s: no string column %q", f.name, name))
	}
	return c.Strings
}

// MustInt returns an integer column or panics.
func (f *Frame) MustInt(name string) []int64 {
	c, ok := f.Column(name)
	if !ok || c.Kind != Int {
		panic(fmt.Sprintf("frame %s: no int column %q", f.name, name))
	}
	return c.Ints
}

// MustBool returns a bool column or panics.
func (f *Frame) MustBool(name string) []bool {
	c, ok := f.Column(name)
	if !ok || c.Kind != Bool {
		panic(fmt.Sprintf("frame %s: no bool column %q", f.name, name))
	}
	return c.Bools
}

// Missing returns the names in required that the frame lacks.
func (f *Frame) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !f.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Rename returns a shallow copy of the frame under another name.
func (f *Frame) Rename(name string) *Frame {
	out := f.Select()
	out.name = name
	return out
}

// Select returns a frame sharing the same keys holding only the named
// columns. With no names it keeps every column.
func (f *Frame) Select(names ...string) *Frame {
	out := New(f.name, f.keys)
	if len(names) == 0 {
		for _, c := range f.cols {
			out.set(c)
		}
		return out
	}
	for _, n := range names {
		if c, ok := f.Column(n); ok {
			out.set(c)
		}
	}
	return out
}

// Take returns a new frame holding the given rows in the given order.
func (f *Frame) Take(rows []int) *Frame {
	keys := make([]Key, len(rows))
	for i, r := range rows {
		keys[i] = f.keys[r]
	}
	out := New(f.name, keys)
	for _, c := range f.cols {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		switch c.Kind {
		case Float:
			nc.Floats = make([]float64, len(rows))
			for i, r := range rows {
				nc.Floats[i] = c.Floats[r]
			}
		case String:
			nc.Strings = make([]string, len(rows))
			for i, r := range rows {
				nc.Strings[i] = c.Strings[r]
			}
		case Bool:
			nc.Bools = make([]bool, len(rows))
			for i, r := range rows {
				nc.Bools[i] = c.Bools[r]
			}
		case Int:
			nc.Ints = make([]int64, len(rows))
			for i, r := range rows {
				nc.Ints[i] = c.Ints[r]
			}
		}
		out.set(nc)
	}
	return out
}

// SortByKey returns the frame reordered by (market, date). Ties keep their
// input order.
func (f *Frame) SortByKey() *Frame {
	rows := make([]int, len(f.keys))
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return f.keys[rows[a]].Less(f.keys[rows[b]])
	})
	return f.Take(rows)
}

// DuplicateKeys returns every key that appears more than once, in first
// occurrence order.
func (f *Frame) DuplicateKeys() []Key {
	seen := make(map[Key]int, len(f.keys))
	var dups []Key
	for _, k := range f.keys {
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}

// Segment is a contiguous run of rows belonging to one market.
type Segment struct {
	Market string
	Start  int
	End    int
}

// Segments splits the rows into per-market runs. The frame must be sorted
// by key.
func (f *Frame) Segments() []Segment {
	var segs []Segment
	for i, k := range f.keys {
		if len(segs) == 0 || segs[len(segs)-1].Market != k.Market {
			segs = append(segs, Segment{Market: k.Market, Start: i, End: i + 1})
			continue
		}
		segs[len(segs)-1].End = i + 1
	}
	return segs
}

// PerMarket applies fn to each market's slice of xs and stitches the
// results back into one series aligned with the frame.
func (f *Frame) PerMarket(xs []float64, fn func([]float64) []float64) []float64 {
	out := make([]float64, len(xs))
	for _, s := range f.Segments() {
		copy(out[s.Start:s.End], fn(xs[s.Start:s.End]))
	}
	return out
}

// LatestRows returns, for each market, the row index of its most recent
// report date.
func (f *Frame) LatestRows() []int {
	segs := f.Segments()
	rows := make([]int, 0, len(segs))
	for _, s := range segs {
		best := s.Start
		for i := s.Start + 1; i < s.End; i++ {
			if f.keys[i].Date.After(f.keys[best].Date) {
				best = i
			}
		}
		rows = append(rows, best)
	}
	return rows
}
