package frame

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrDuplicateKeys means a table holds the same (market, date) twice.
	ErrDuplicateKeys = errors.New("duplicate keys")
	// ErrColumnCollision means two joined tables share a non-key column.
	ErrColumnCollision = errors.New("column collision")
	// ErrRowCount means a join changed the number of rows.
	ErrRowCount = errors.New("row count mismatch")
)

// CheckUnique fails with ErrDuplicateKeys when any key repeats.
func CheckUnique(f *Frame) error {
	dups := f.DuplicateKeys()
	if len(dups) == 0 {
		return nil
	}
	sample := make([]string, 0, 5)
	for i, k := range dups {
		if i == 5 {
			break
		}
		sample = append(sample, k.String())
	}
	return fmt.Errorf("%s has %d duplicate keys (e.g. %s): %w",
		f.Name(), len(dups), strings.Join(sample, ", "), ErrDuplicateKeys)
}

// CheckCollisions fails with ErrColumnCollision when any non-key column
// appears in more than one frame.
func CheckCollisions(frames ...*Frame) error {
	owner := make(map[string]string)
	for _, f := range frames {
		for _, c := range f.cols {
			if prev, ok := owner[c.Name]; ok {
				return fmt.Errorf("column %q present in both %s and %s: %w", c.Name, prev, f.Name(), ErrColumnCollision)
			}
			owner[c.Name] = f.Name()
		}
	}
	return nil
}

// LeftJoin joins every frame onto base by key. Each side must have unique
// keys and no shared columns; the result keeps base's row order and row
// count. Rows missing on the right get NaN, "" or false.
func LeftJoin(name string, base *Frame, others ...*Frame) (*Frame, error) {
	all := append([]*Frame{base}, others...)
	for _, f := range all {
		if err := CheckUnique(f); err != nil {
			return nil, err
		}
	}
	if err := CheckCollisions(all...); err != nil {
		return nil, err
	}

	out := base.Rename(name)
	for _, o := range others {
		pos := make(map[Key]int, o.Len())
		for i, k := range o.keys {
			pos[k] = i
		}
		rows := make([]int, base.Len())
		for i, k := range base.keys {
			r, ok := pos[k]
			if !ok {
				r = -1
			}
			rows[i] = r
		}
		for _, c := range o.cols {
			out.set(align(c, rows))
		}
	}

	if out.Len() != base.Len() {
		return nil, fmt.Errorf("%s: %d rows after join, expected %d: %w", name, out.Len(), base.Len(), ErrRowCount)
	}
	if err := CheckUnique(out); err != nil {
		return nil, err
	}
	return out, nil
}

func align(c *Column, rows []int) *Column {
	nc := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Float:
		nc.Floats = make([]float64, len(rows))
		for i, r := range rows {
			if r < 0 {
				nc.Floats[i] = math.NaN()
				continue
			}
			nc.Floats[i] = c.Floats[r]
		}
	case String:
		nc.Strings = make([]string, len(rows))
		for i, r := range rows {
			if r >= 0 {
				nc.Strings[i] = c.Strings[r]
			}
		}
	case Bool:
		nc.Bools = make([]bool, len(rows))
		for i, r := range rows {
			if r >= 0 {
				nc.Bools[i] = c.Bools[r]
			}
		}
	case Int:
		nc.Ints = make([]int64, len(rows))
		for i, r := range rows {
			if r >= 0 {
				nc.Ints[i] = c.Ints[r]
			}
		}
	}
	return nc
}
