package cot

import "math"

// rule pairs a row predicate with the label it assigns.
type rule struct {
	label string
	when  func(i int) bool
}

// ladder is an ordered list of rules evaluated first-match-wins per row.
// Rows for which missing reports true are labelled N/A before any rule is
// tried; rows matching no rule get the fallback.
type ladder struct {
	missing  func(i int) bool
	rules    []rule
	fallback string
}

func (l ladder) eval(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = l.label(i)
	}
	return out
}

func (l ladder) label(i int) string {
	if l.missing != nil && l.missing(i) {
		return NotApply
	}
	for _, r := range l.rules {
		if r.when(i) {
			return r.label
		}
	}
	return l.fallback
}

// anyNaN builds a missing-input predicate over the given series.
func anyNaN(series ...[]float64) func(i int) bool {
	return func(i int) bool {
		for _, s := range series {
			if math.IsNaN(s[i]) {
				return true
			}
		}
		return false
	}
}

// anyNA builds a missing-input predicate over label columns.
func anyNA(labels ...[]string) func(i int) bool {
	return func(i int) bool {
		for _, l := range labels {
			if l[i] == NotApply || l[i] == "" {
				return true
			}
		}
		return false
	}
}

// bands labels a score by thresholds: below lo, between lo and hi
// inclusive, above hi. Missing scores are N/A.
func bands(xs []float64, lo, hi float64, low, mid, high string) []string {
	return ladder{
		missing: anyNaN(xs),
		rules: []rule{
			{low, func(i int) bool { return xs[i] < lo }},
			{mid, func(i int) bool { return xs[i] <= hi }},
		},
		fallback: high,
	}.eval(len(xs))
}
