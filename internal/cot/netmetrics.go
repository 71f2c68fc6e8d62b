package cot

import (
	"math"

	"cotcli/internal/frame"
	"cotcli/internal/window"
)

// addSpreadAndShareOfOI derives the funds-minus-commercials net spread and
// each group's net position and weekly net flow as a share of open interest.
func addSpreadAndShareOfOI(w *frame.Frame) {
	nc := w.MustFloat(col(GroupFunds, "net"))
	comm := w.MustFloat(col(GroupCommercials, "net"))
	spread := make([]float64, len(nc))
	for i := range nc {
		spread[i] = nc[i] - comm[i]
	}
	w.SetFloat("spec_vs_hedge_net", spread)
	w.SetFloat("spec_vs_hedge_net_chg_1w", w.PerMarket(spread, diff1))

	oi := w.MustFloat("open_interest")
	shareOfOI := func(xs []float64) []float64 {
		out := make([]float64, len(xs))
		for i := range xs {
			out[i] = math.NaN()
			if oi[i] > 0 {
				out[i] = xs[i] / oi[i]
			}
		}
		return out
	}

	for _, g := range Groups {
		net := shareOfOI(w.MustFloat(col(g, "net")))
		flow := shareOfOI(w.FloatOrNaN(col(g, "net_chg_1w")))
		w.SetFloat(col(g, "net_pct_oi"), net)
		w.SetFloat(col(g, "flow_pct_oi_1w"), flow)
	}
	for _, g := range Groups {
		for _, name := range []string{col(g, "net_pct_oi"), col(g, "flow_pct_oi_1w")} {
			ext := computeExtremes(w, w.MustFloat(name))
			w.SetFloat(name+"_pos_all", ext.posAll)
			w.SetFloat(name+"_pos_5y", ext.pos5y)
		}
	}
}

// addChangeHeatline ranges every weekly change against its history.
func addChangeHeatline(w *frame.Frame) {
	for _, c := range PositionColumns() {
		name := c + "_chg_1w"
		computeExtremes(w, w.MustFloat(name)).write(w, name)
	}
}

// sharedScale ranges two series against a single common scale: the
// combined min and max of both, all-time and trailing five years.
type sharedScale struct {
	minAll, maxAll, min5y, max5y []float64
}

func newSharedScale(w *frame.Frame, a, b []float64) sharedScale {
	ea, eb := computeExtremes(w, a), computeExtremes(w, b)
	n := len(a)
	s := sharedScale{
		minAll: make([]float64, n), maxAll: make([]float64, n),
		min5y: make([]float64, n), max5y: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.minAll[i] = nanMin(ea.minAll[i], eb.minAll[i])
		s.maxAll[i] = nanMax(ea.maxAll[i], eb.maxAll[i])
		s.min5y[i] = nanMin(ea.min5y[i], eb.min5y[i])
		s.max5y[i] = nanMax(ea.max5y[i], eb.max5y[i])
	}
	return s
}

func (s sharedScale) positions(xs []float64) (all, fiveYear []float64) {
	all = make([]float64, len(xs))
	fiveYear = make([]float64, len(xs))
	for i, x := range xs {
		all[i] = window.PositionAll(x, s.minAll[i], s.maxAll[i])
		fiveYear[i] = window.PositionWindow(x, s.min5y[i], s.max5y[i])
	}
	return all, fiveYear
}

// addSharedScale places funds and commercials net positions, and their
// weekly net changes, on one scale so the two groups can be compared.
func addSharedScale(w *frame.Frame) {
	for _, prefix := range []string{"fc_net", "fc_net_chg"} {
		suffix := ""
		if prefix == "fc_net_chg" {
			suffix = "_chg_1w"
		}
		nc := w.MustFloat(col(GroupFunds, "net") + suffix)
		comm := w.MustFloat(col(GroupCommercials, "net") + suffix)
		s := newSharedScale(w, nc, comm)

		w.SetFloat(prefix+"_min_all", s.minAll)
		w.SetFloat(prefix+"_max_all", s.maxAll)
		ncAll, nc5y := s.positions(nc)
		commAll, comm5y := s.positions(comm)
		w.SetFloat(prefix+"_pos_nc_all", ncAll)
		w.SetFloat(prefix+"_pos_comm_all", commAll)
		w.SetFloat(prefix+"_min_5y", s.min5y)
		w.SetFloat(prefix+"_max_5y", s.max5y)
		w.SetFloat(prefix+"_pos_nc_5y", nc5y)
		w.SetFloat(prefix+"_pos_comm_5y", comm5y)
	}
}

func nanMin(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	default:
		return math.Min(a, b)
	}
}

func nanMax(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	default:
		return math.Max(a, b)
	}
}
