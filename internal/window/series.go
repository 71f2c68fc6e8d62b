package window

import (
	"math"
	"sort"
)

// NaN is the missing-value marker used across every computed series.
var NaN = math.NaN()

// Diff returns xs[i] - xs[i-lag]; the first lag rows are NaN.
func Diff(xs []float64, lag int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < lag {
			out[i] = NaN
			continue
		}
		out[i] = xs[i] - xs[i-lag]
	}
	return out
}

// Shift moves values down by n rows, filling the head with NaN.
func Shift(xs []float64, n int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i < n {
			out[i] = NaN
			continue
		}
		out[i] = xs[i-n]
	}
	return out
}

// Abs returns |x| for every element, keeping NaN.
func Abs(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Abs(x)
	}
	return out
}

// MinMax returns the minimum and maximum of the present values, or NaN for
// both when every value is missing.
func MinMax(xs []float64) (lo, hi float64) {
	lo, hi = NaN, NaN
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		if math.IsNaN(lo) || x < lo {
			lo = x
		}
		if math.IsNaN(hi) || x > hi {
			hi = x
		}
	}
	return lo, hi
}

// Fill returns a series of length n holding v.
func Fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// RankPct ranks each present value against every present value of the
// series. Ties take the lowest shared rank (1 + count of strictly smaller
// values) and the rank is divided by the number of present values.
func RankPct(xs []float64) []float64 {
	sorted := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			sorted = append(sorted, x)
		}
	}
	sort.Float64s(sorted)
	out := make([]float64, len(xs))
	n := float64(len(sorted))
	for i, x := range xs {
		if math.IsNaN(x) {
			out[i] = NaN
			continue
		}
		smaller := sort.SearchFloat64s(sorted, x)
		out[i] = float64(smaller+1) / n
	}
	return out
}

// PositionAll places x inside a full-history range. A flat range gives 0.5
// whenever x is present.
func PositionAll(x, lo, hi float64) float64 {
	diff := hi - lo
	if diff > 0 {
		return (x - lo) / diff
	}
	if !math.IsNaN(x) {
		return 0.5
	}
	return NaN
}

// PositionWindow places x inside a trailing-window range. Missing bounds
// (an immature window) give NaN; a flat range gives 0.5 when x is present.
func PositionWindow(x, lo, hi float64) float64 {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return NaN
	}
	diff := hi - lo
	if diff > 0 {
		return (x - lo) / diff
	}
	if diff == 0 && !math.IsNaN(x) {
		return 0.5
	}
	return NaN
}

// Sign returns -1, 0 or +1, and NaN for a missing value.
func Sign(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return NaN
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Opposite reports whether a and b are both nonzero with opposite signs.
func Opposite(a, b float64) bool {
	sa, sb := Sign(a), Sign(b)
	return sa != 0 && sb != 0 && sa == -sb
}
