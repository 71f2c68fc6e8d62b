package window

import (
	"math"
	"sort"
)

// Spec describes a trailing window over a weekly series: the last Size rows
// ending at the current row, emitting a value only when at least MinPeriods
// of those rows are present (non-NaN).
type Spec struct {
	Size       int
	MinPeriods int
}

var (
	// Quarter is the 13-week moving-average window.
	Quarter = Spec{Size: 13, MinPeriods: 1}
	// Year is the 52-week window used for z-scores and activity thresholds.
	Year = Spec{Size: 52, MinPeriods: 26}
	// FiveYear is the 260-week window used for extremes and percentiles.
	FiveYear = Spec{Size: 260, MinPeriods: 52}
)

// Reduce slides the window across xs and calls fn with the window's present
// values and the value at the current row. Rows whose window holds fewer than
// MinPeriods present values are NaN. The valid slice is reused between calls.
func (s Spec) Reduce(xs []float64, fn func(valid []float64, current float64) float64) []float64 {
	out := make([]float64, len(xs))
	valid := make([]float64, 0, s.Size)
	for i := range xs {
		lo := i - s.Size + 1
		if lo < 0 {
			lo = 0
		}
		valid = valid[:0]
		for _, v := range xs[lo : i+1] {
			if !math.IsNaN(v) {
				valid = append(valid, v)
			}
		}
		if len(valid) == 0 || len(valid) < s.MinPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(valid, xs[i])
	}
	return out
}

// Mean is the trailing arithmetic mean.
func (s Spec) Mean(xs []float64) []float64 {
	return s.Reduce(xs, func(valid []float64, _ float64) float64 {
		return mean(valid)
	})
}

// Std is the trailing population standard deviation (ddof 0).
func (s Spec) Std(xs []float64) []float64 {
	return s.Reduce(xs, func(valid []float64, _ float64) float64 {
		return stdPop(valid)
	})
}

// Min is the trailing minimum.
func (s Spec) Min(xs []float64) []float64 {
	return s.Reduce(xs, func(valid []float64, _ float64) float64 {
		m := valid[0]
		for _, v := range valid[1:] {
			if v < m {
				m = v
			}
		}
		return m
	})
}

// Max is the trailing maximum.
func (s Spec) Max(xs []float64) []float64 {
	return s.Reduce(xs, func(valid []float64, _ float64) float64 {
		m := valid[0]
		for _, v := range valid[1:] {
			if v > m {
				m = v
			}
		}
		return m
	})
}

// Quantile is the trailing q-quantile with linear interpolation between
// order statistics.
func (s Spec) Quantile(xs []float64, q float64) []float64 {
	buf := make([]float64, 0, s.Size)
	return s.Reduce(xs, func(valid []float64, _ float64) float64 {
		buf = append(buf[:0], valid...)
		sort.Float64s(buf)
		return quantileSorted(buf, q)
	})
}

// Median is the trailing 0.5 quantile.
func (s Spec) Median(xs []float64) []float64 {
	return s.Quantile(xs, 0.5)
}

// PercentileOfCurrent returns, for each row, the share of the window's
// present values that are less than or equal to the current value. A missing
// current value yields NaN.
func (s Spec) PercentileOfCurrent(xs []float64) []float64 {
	return s.Reduce(xs, func(valid []float64, current float64) float64 {
		if math.IsNaN(current) {
			return math.NaN()
		}
		n := 0
		for _, v := range valid {
			if v <= current {
				n++
			}
		}
		return float64(n) / float64(len(valid))
	})
}

// ZScore standardizes each value against the trailing mean and population
// standard deviation. A zero or undefined deviation yields NaN.
func (s Spec) ZScore(xs []float64) []float64 {
	means := s.Mean(xs)
	stds := s.Std(xs)
	out := make([]float64, len(xs))
	for i, x := range xs {
		if math.IsNaN(stds[i]) || stds[i] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (x - means[i]) / stds[i]
	}
	return out
}

func mean(valid []float64) float64 {
	sum := 0.0
	for _, v := range valid {
		sum += v
	}
	return sum / float64(len(valid))
}

func stdPop(valid []float64) float64 {
	m := mean(valid)
	ss := 0.0
	for _, v := range valid {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(valid)))
}

func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
