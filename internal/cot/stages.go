package cot

import (
	"fmt"
	"math"

	apperrors "cotcli/internal/errors"
	"cotcli/internal/frame"
	"cotcli/internal/window"
)

// Stage table names; they double as output file stems.
const (
	TablePositions   = "positions_weekly"
	TableChanges     = "changes_weekly"
	TableFlows       = "flows_weekly"
	TableRolling     = "rolling_weekly"
	TableExtremes    = "extremes_weekly"
	TableMoves       = "moves_weekly"
	TableMetrics     = "metrics_weekly"
	TableRadar       = "market_radar_latest"
	TablePositioning = "market_positioning_latest"
)

// PositionInputColumns are the canonical counts the positions builder needs.
// Small-trader columns are optional and read as zero when absent.
var PositionInputColumns = []string{"nc_long", "nc_short", "comm_long", "comm_short"}

func requireColumns(f *frame.Frame, cols ...string) error {
	if missing := f.Missing(cols...); len(missing) > 0 {
		return apperrors.NewSchemaError(f.Name(), missing)
	}
	return nil
}

func requireRows(f *frame.Frame) error {
	if f.Len() == 0 {
		return apperrors.NewIntegrityError(fmt.Sprintf("%s is empty", f.Name()), nil)
	}
	return nil
}

// zeroFilled returns the column with NaN replaced by 0, or zeros when absent.
func zeroFilled(f *frame.Frame, name string) []float64 {
	out := make([]float64, f.Len())
	src, ok := f.Float(name)
	if !ok {
		return out
	}
	for i, v := range src {
		if !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out
}

// BuildPositions derives long, short, total and net per trader group from
// canonical counts, sorted by market then report date. Missing or
// non-numeric counts are treated as zero.
func BuildPositions(canonical *frame.Frame) (*frame.Frame, error) {
	if err := requireColumns(canonical, PositionInputColumns...); err != nil {
		return nil, err
	}
	sorted := canonical.SortByKey()
	out := frame.New(TablePositions, sorted.Keys())
	for _, g := range Groups {
		long := zeroFilled(sorted, col(g, "long"))
		short := zeroFilled(sorted, col(g, "short"))
		total := make([]float64, len(long))
		net := make([]float64, len(long))
		for i := range long {
			total[i] = long[i] + short[i]
			net[i] = long[i] - short[i]
		}
		out.SetFloat(col(g, "long"), long)
		out.SetFloat(col(g, "short"), short)
		out.SetFloat(col(g, "total"), total)
		out.SetFloat(col(g, "net"), net)
	}
	return out, nil
}

// PositionColumns lists the position fields in output order.
func PositionColumns() []string {
	cols := make([]string, 0, len(Groups)*len(Metrics))
	for _, g := range Groups {
		for _, m := range Metrics {
			cols = append(cols, col(g, m))
		}
	}
	return cols
}

// BuildChanges takes the week-over-week difference of every position field
// within each market. The first week of a market is NaN.
func BuildChanges(positions *frame.Frame) (*frame.Frame, error) {
	if err := requireColumns(positions, PositionColumns()...); err != nil {
		return nil, err
	}
	out := frame.New(TableChanges, positions.Keys())
	for _, c := range PositionColumns() {
		out.SetFloat(c+"_chg_1w", positions.PerMarket(positions.MustFloat(c), func(xs []float64) []float64 {
			return window.Diff(xs, 1)
		}))
	}
	return out, nil
}

// BuildFlows splits each week's change into directional net flow and
// rotation, the long/short repositioning that cancels out in net terms.
func BuildFlows(changes *frame.Frame) (*frame.Frame, error) {
	out := frame.New(TableFlows, changes.Keys())
	for _, g := range Groups {
		if err := requireColumns(changes, col(g, "long_chg_1w"), col(g, "short_chg_1w")); err != nil {
			return nil, err
		}
		dl := changes.MustFloat(col(g, "long_chg_1w"))
		ds := changes.MustFloat(col(g, "short_chg_1w"))
		dn := changes.FloatOrNaN(col(g, "net_chg_1w"))

		n := changes.Len()
		totalCalc := make([]float64, n)
		netCalc := make([]float64, n)
		gross := make([]float64, n)
		netAbs := make([]float64, n)
		rotation := make([]float64, n)
		rotShare := make([]float64, n)
		netShare := make([]float64, n)

		for i := 0; i < n; i++ {
			totalCalc[i] = dl[i] + ds[i]
			netCalc[i] = dl[i] - ds[i]
			delta := dn[i]
			if math.IsNaN(delta) {
				delta = netCalc[i]
			}
			gross[i] = math.Abs(dl[i]) + math.Abs(ds[i])
			netAbs[i] = math.Abs(delta)
			rotation[i] = math.NaN()
			if d := gross[i] - netAbs[i]; !math.IsNaN(d) {
				rotation[i] = math.Max(d, 0)
			}

			rotShare[i], netShare[i] = math.NaN(), math.NaN()
			switch {
			case gross[i] > flowEps:
				rotShare[i] = rotation[i] / gross[i]
				netShare[i] = netAbs[i] / gross[i]
			case gross[i] == 0:
				rotShare[i], netShare[i] = 0, 0
			}
		}

		out.SetFloat(col(g, "total_chg_1w_calc"), totalCalc)
		out.SetFloat(col(g, "net_chg_1w_calc"), netCalc)
		out.SetFloat(col(g, "gross_chg_1w"), gross)
		out.SetFloat(col(g, "net_abs_chg_1w"), netAbs)
		out.SetFloat(col(g, "rotation_1w"), rotation)
		out.SetFloat(col(g, "rotation_share_1w"), rotShare)
		out.SetFloat(col(g, "net_share_1w"), netShare)
	}
	return out, nil
}

// BuildRolling computes the 13-week trailing mean of every position field.
func BuildRolling(positions *frame.Frame) (*frame.Frame, error) {
	if err := requireColumns(positions, PositionColumns()...); err != nil {
		return nil, err
	}
	out := frame.New(TableRolling, positions.Keys())
	for _, c := range PositionColumns() {
		out.SetFloat(c+"_ma_13w", positions.PerMarket(positions.MustFloat(c), window.Quarter.Mean))
	}
	return out, nil
}

// extremes holds min, max and position of a series for both scopes.
type extremes struct {
	minAll, maxAll, posAll []float64
	min5y, max5y, pos5y    []float64
}

// computeExtremes ranges every value against the market's full history and
// against its trailing five-year window.
func computeExtremes(f *frame.Frame, xs []float64) extremes {
	n := len(xs)
	e := extremes{
		minAll: make([]float64, n), maxAll: make([]float64, n), posAll: make([]float64, n),
		pos5y: make([]float64, n),
	}
	for _, s := range f.Segments() {
		lo, hi := window.MinMax(xs[s.Start:s.End])
		for i := s.Start; i < s.End; i++ {
			e.minAll[i], e.maxAll[i] = lo, hi
			e.posAll[i] = window.PositionAll(xs[i], lo, hi)
		}
	}
	e.min5y = f.PerMarket(xs, window.FiveYear.Min)
	e.max5y = f.PerMarket(xs, window.FiveYear.Max)
	for i := range xs {
		e.pos5y[i] = window.PositionWindow(xs[i], e.min5y[i], e.max5y[i])
	}
	return e
}

func (e extremes) write(out *frame.Frame, prefix string) {
	out.SetFloat(prefix+"_min_all", e.minAll)
	out.SetFloat(prefix+"_max_all", e.maxAll)
	out.SetFloat(prefix+"_pos_all", e.posAll)
	out.SetFloat(prefix+"_min_5y", e.min5y)
	out.SetFloat(prefix+"_max_5y", e.max5y)
	out.SetFloat(prefix+"_pos_5y", e.pos5y)
}

// BuildExtremes computes all-time and trailing five-year min, max and
// position for every position field.
func BuildExtremes(positions *frame.Frame) (*frame.Frame, error) {
	if err := requireColumns(positions, PositionColumns()...); err != nil {
		return nil, err
	}
	out := frame.New(TableExtremes, positions.Keys())
	for _, c := range PositionColumns() {
		computeExtremes(positions, positions.MustFloat(c)).write(out, c)
	}
	return out, nil
}

// movePercentiles ranks |chg| against the market's history and its trailing
// five-year window, masking rows whose change is missing.
func movePercentiles(f *frame.Frame, chg []float64) (all, fiveYear []float64) {
	mag := window.Abs(chg)
	all = f.PerMarket(mag, window.RankPct)
	fiveYear = f.PerMarket(mag, window.FiveYear.PercentileOfCurrent)
	for i, v := range chg {
		if math.IsNaN(v) {
			all[i], fiveYear[i] = math.NaN(), math.NaN()
		}
	}
	return all, fiveYear
}

// BuildMoves computes the percentile rank of each week's change magnitude.
func BuildMoves(changes *frame.Frame) (*frame.Frame, error) {
	out := frame.New(TableMoves, changes.Keys())
	for _, c := range PositionColumns() {
		chg, ok := changes.Float(c + "_chg_1w")
		if !ok {
			return nil, apperrors.NewSchemaError(changes.Name(), []string{c + "_chg_1w"})
		}
		all, fiveYear := movePercentiles(changes, chg)
		out.SetFloat(c+"_move_pct_all", all)
		out.SetFloat(c+"_move_pct_5y", fiveYear)
	}
	return out, nil
}
