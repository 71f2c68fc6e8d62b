package cot

import (
	"math"
	"strings"

	"cotcli/internal/frame"
	"cotcli/internal/window"
)

// groupFlow bundles the weekly deltas of one trader group.
type groupFlow struct {
	long, short, net []float64
}

func flowOf(w *frame.Frame, g string) groupFlow {
	return groupFlow{
		long:  w.MustFloat(col(g, "long_chg_1w")),
		short: w.MustFloat(col(g, "short_chg_1w")),
		net:   w.MustFloat(col(g, "net_chg_1w")),
	}
}

// activityLabels marks a week Aggressive when its absolute net change
// reaches the trailing 52-week 75th percentile of absolute net changes.
func activityLabels(w *frame.Frame, netDelta []float64) []string {
	mag := window.Abs(netDelta)
	p75 := w.PerMarket(mag, func(xs []float64) []float64 {
		return window.Year.Quantile(xs, ActivityQuantile)
	})
	return ladder{
		missing:  anyNaN(p75, mag),
		rules:    []rule{{LabelAggressive, func(i int) bool { return mag[i] >= p75[i] }}},
		fallback: LabelNormal,
	}.eval(len(mag))
}

// flowLabels classifies a week as Directional when the long and short legs
// move in opposite directions and the net change exceeds half of the
// larger leg.
func flowLabels(f groupFlow) []string {
	return ladder{
		missing: func(i int) bool {
			if math.IsNaN(f.long[i]) || math.IsNaN(f.short[i]) || math.IsNaN(f.net[i]) {
				return true
			}
			return f.long[i] == 0 && f.short[i] == 0
		},
		rules: []rule{
			{LabelRotational, func(i int) bool { return (f.long[i] == 0) != (f.short[i] == 0) || f.net[i] == 0 }},
			{LabelDirectional, func(i int) bool {
				maxAbs := math.Max(math.Abs(f.long[i]), math.Abs(f.short[i]))
				return window.Opposite(f.long[i], f.short[i]) && math.Abs(f.net[i]) > DirectionalNetShare*maxAbs
			}},
		},
		fallback: LabelRotational,
	}.eval(len(f.long))
}

// fundsPositioning maps the funds net z-score onto a five-step ladder.
func fundsPositioning(z []float64) []string {
	return ladder{
		missing: anyNaN(z),
		rules: []rule{
			{LabelCrowdedLong, func(i int) bool { return z[i] >= ZCrowded }},
			{LabelExtendedLong, func(i int) bool { return z[i] >= ZExtended }},
			{LabelBalanced, func(i int) bool { return z[i] > -ZExtended }},
			{LabelExtendedShort, func(i int) bool { return z[i] > -ZCrowded }},
		},
		fallback: LabelCrowdedShort,
	}.eval(len(z))
}

// commercialsPositioning uses a three-step ladder, overridden to Unwound
// when an aggressive directional week moves against the prior net position
// from an extended prior z-score. An immature z-score reads as Balanced.
func commercialsPositioning(w *frame.Frame, z, net []float64, activity, flow []string, delta []float64) []string {
	prevNet := w.PerMarket(net, shift1)
	prevZ := w.PerMarket(z, shift1)
	unwound := func(i int) bool {
		return activity[i] == LabelAggressive &&
			flow[i] == LabelDirectional &&
			window.Opposite(delta[i], prevNet[i]) &&
			math.Abs(prevZ[i]) >= UnwindPriorZ
	}
	return ladder{
		rules: []rule{
			{LabelUnwound, unwound},
			{LabelCrowdedLong, func(i int) bool { return z[i] >= ZCrowded }},
			{LabelCrowdedShort, func(i int) bool { return z[i] <= -ZCrowded }},
		},
		fallback: LabelBalanced,
	}.eval(len(z))
}

// conflictLevels compares the two groups' aggressive directional activity
// against the sign of their net changes.
func conflictLevels(fundsAct, fundsFlow, commAct, commFlow []string, fundsDelta, commDelta []float64) []string {
	aggressive := func(act, flow []string, i int) bool {
		return act[i] == LabelAggressive && flow[i] == LabelDirectional
	}
	return ladder{
		rules: []rule{
			{LevelHigh, func(i int) bool {
				return aggressive(fundsAct, fundsFlow, i) && aggressive(commAct, commFlow, i) && window.Opposite(fundsDelta[i], commDelta[i])
			}},
			{LevelMedium, func(i int) bool {
				return (aggressive(fundsAct, fundsFlow, i) || aggressive(commAct, commFlow, i)) && window.Opposite(fundsDelta[i], commDelta[i])
			}},
		},
		fallback: LevelLow,
	}.eval(len(fundsDelta))
}

// riskLevels scores open-interest stretch, crowded commercials and high
// conflict into Low, Elevated or High.
func riskLevels(oiZ []float64, commPositioning, conflict []string) []string {
	score := make([]float64, len(oiZ))
	for i, z := range oiZ {
		if z >= ZCrowded {
			score[i]++
		}
		if z >= ZExtreme {
			score[i]++
		}
		if strings.HasPrefix(commPositioning[i], "Crowded") {
			score[i]++
		}
		if conflict[i] == LevelHigh {
			score[i]++
		}
	}
	return ladder{
		missing: anyNaN(oiZ),
		rules: []rule{
			{LevelLow, func(i int) bool { return score[i] <= 1 }},
			{LevelElevated, func(i int) bool { return score[i] == 2 }},
		},
		fallback: LevelHigh,
	}.eval(len(oiZ))
}

// trafficSignal combines flow direction, funds positioning extremity and
// a conflict penalty into an integer score clamped to [-2, 2].
func trafficSignal(fundsDelta, commDelta, fundsZ []float64, conflict []string) []int64 {
	out := make([]int64, len(fundsDelta))
	for i := range out {
		var s int64
		if commDelta[i] > 0 {
			s++
		}
		if fundsDelta[i] < 0 {
			s--
		}
		if fundsZ[i] >= ZCrowded {
			s--
		}
		if fundsZ[i] <= -ZCrowded {
			s++
		}
		if conflict[i] == LevelHigh {
			s--
		}
		if s > signalCap {
			s = signalCap
		}
		if s < -signalCap {
			s = -signalCap
		}
		out[i] = s
	}
	return out
}

// addSignals derives net z-scores, activity, flow, positioning, conflict,
// open-interest risk and the composite traffic signal.
func addSignals(w *frame.Frame) {
	funds, comm := flowOf(w, GroupFunds), flowOf(w, GroupCommercials)
	fundsNet := w.MustFloat(col(GroupFunds, "net"))
	commNet := w.MustFloat(col(GroupCommercials, "net"))

	fundsZ := w.PerMarket(fundsNet, window.Year.ZScore)
	commZ := w.PerMarket(commNet, window.Year.ZScore)
	w.SetFloat("net_z_52w_funds", fundsZ)
	w.SetFloat("net_z_52w_commercials", commZ)

	fundsAct := activityLabels(w, funds.net)
	commAct := activityLabels(w, comm.net)
	w.SetString("activity_funds", fundsAct)
	w.SetString("activity_commercials", commAct)

	fundsFlow := flowLabels(funds)
	commFlow := flowLabels(comm)
	w.SetString("flow_funds", fundsFlow)
	w.SetString("flow_commercials", commFlow)

	commPos := commercialsPositioning(w, commZ, commNet, commAct, commFlow, comm.net)
	w.SetString("positioning_funds", fundsPositioning(fundsZ))
	w.SetString("positioning_commercials", commPos)

	conflict := conflictLevels(fundsAct, fundsFlow, commAct, commFlow, funds.net, comm.net)
	w.SetString("conflict_level", conflict)
	w.SetString("oi_risk_level", riskLevels(w.MustFloat("oi_z_52w"), commPos, conflict))
	w.SetInt("cot_traffic_signal", trafficSignal(funds.net, comm.net, fundsZ, conflict))
}
