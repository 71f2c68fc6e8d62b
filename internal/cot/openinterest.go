package cot

import (
	"math"

	"cotcli/internal/frame"
	"cotcli/internal/window"
)

func diff1(xs []float64) []float64  { return window.Diff(xs, 1) }
func shift1(xs []float64) []float64 { return window.Shift(xs, 1) }

// addOpenInterestMetrics derives weekly change, position, percentile,
// change-rank, change z-scores and the simple expansion/contraction regime
// of open interest.
func addOpenInterestMetrics(w *frame.Frame) {
	oi := w.MustFloat("open_interest")
	chg := w.PerMarket(oi, diff1)
	prev := w.PerMarket(oi, shift1)

	pct := make([]float64, len(oi))
	for i := range oi {
		pct[i] = math.NaN()
		if !math.IsNaN(prev[i]) && prev[i] != 0 {
			pct[i] = chg[i] / prev[i]
		}
	}
	w.SetFloat("open_interest_chg_1w", chg)
	w.SetFloat("open_interest_chg_1w_pct", pct)

	ext := computeExtremes(w, oi)
	w.SetFloat("open_interest_pos_all", ext.posAll)
	w.SetFloat("open_interest_pos_5y", ext.pos5y)
	w.SetFloat("open_interest_pct_all", w.PerMarket(oi, window.RankPct))
	w.SetFloat("open_interest_pct_5y", w.PerMarket(oi, window.FiveYear.PercentileOfCurrent))

	absPct := window.Abs(pct)
	rankAll := w.PerMarket(absPct, window.RankPct)
	rank5y := w.PerMarket(absPct, window.FiveYear.PercentileOfCurrent)
	w.SetFloat("open_interest_chg_pct_rank_all", rankAll)
	w.SetFloat("open_interest_chg_pct_rank_5y", rank5y)
	w.SetFloat("open_interest_chg_z_52w", w.PerMarket(pct, window.Year.ZScore))
	w.SetFloat("open_interest_chg_z_260w", w.PerMarket(pct, window.FiveYear.ZScore))

	regime := ladder{
		missing: anyNaN(pct),
		rules: []rule{
			{"Expansion", func(i int) bool { return pct[i] > 0 }},
			{"Contraction", func(i int) bool { return pct[i] < 0 }},
		},
		fallback: "Flat",
	}.eval(len(pct))
	w.SetString("open_interest_regime_all", regime)
	w.SetString("open_interest_regime_5y", regime)

	w.SetString("open_interest_regime_strength_all",
		bands(rankAll, StrengthWeakBelow, StrengthModerateMax, "Weak", "Moderate", "Strong"))
	w.SetString("open_interest_regime_strength_5y",
		bands(rank5y, StrengthWeakBelow, StrengthModerateMax, "Weak", "Moderate", "Strong"))
}

// addAdvancedOpenInterest derives level z-scores, the four-week delta and
// acceleration, the OI regime and the group driving the week's change.
func addAdvancedOpenInterest(w *frame.Frame) {
	oi := w.MustFloat("open_interest")
	delta := w.MustFloat("open_interest_chg_1w")

	z52 := w.PerMarket(oi, window.Year.ZScore)
	w.SetFloat("oi_z_52w", z52)
	w.SetFloat("oi_z_260w", w.PerMarket(oi, window.FiveYear.ZScore))

	delta4 := w.PerMarket(oi, func(xs []float64) []float64 { return window.Diff(xs, oiDeltaLag) })
	accel := make([]float64, len(oi))
	for i := range oi {
		accel[i] = delta[i] - delta4[i]/oiDeltaLag
	}
	w.SetFloat("oi_delta_4w", delta4)
	w.SetFloat("oi_acceleration", accel)

	medAbs := w.PerMarket(window.Abs(delta), window.Year.Median)
	small := make([]float64, len(oi))
	for i := range small {
		small[i] = SmallMoveFraction * medAbs[i]
	}

	w.SetString("oi_regime", oiRegimes(delta, accel, z52, small))

	funds := window.Abs(w.FloatOrNaN(col(GroupFunds, "net_chg_1w")))
	comm := window.Abs(w.FloatOrNaN(col(GroupCommercials, "net_chg_1w")))
	w.SetString("oi_driver", oiDrivers(funds, comm))
}

// oiRegimes classifies each week's open-interest move. Rules are tried in
// order; small is the per-row threshold below which a change is flat.
func oiRegimes(delta, accel, z, small []float64) []string {
	return ladder{
		missing: anyNaN(delta, accel, z, small),
		rules: []rule{
			{RegimeExpansionEarly, func(i int) bool { return delta[i] > 0 && accel[i] > 0 && z[i] < ZCrowded }},
			{RegimeExpansionLate, func(i int) bool { return delta[i] > 0 && accel[i] >= 0 && z[i] >= ZCrowded }},
			{RegimeDistribution, func(i int) bool { return delta[i] < 0 && z[i] >= ZCrowded }},
			{RegimeNeutral, func(i int) bool { return math.Abs(delta[i]) <= small[i] && math.Abs(z[i]) < ZNeutral }},
			{RegimeRebuild, func(i int) bool { return delta[i] > 0 && z[i] <= ZRebuild }},
		},
		fallback: RegimeMixed,
	}.eval(len(delta))
}

// oiDrivers attributes a week's positioning change to the group holding at
// least DriverShare of the combined absolute net change.
func oiDrivers(funds, comm []float64) []string {
	total := make([]float64, len(funds))
	for i := range total {
		total[i] = funds[i] + comm[i]
	}
	return ladder{
		missing: anyNaN(total),
		rules: []rule{
			{NotApply, func(i int) bool { return total[i] == 0 }},
			{DriverFunds, func(i int) bool { return funds[i]/total[i] >= DriverShare }},
			{DriverCommercials, func(i int) bool { return comm[i]/total[i] >= DriverShare }},
		},
		fallback: RegimeMixed,
	}.eval(len(funds))
}
