package cot

import (
	"fmt"
	"math"
	"strings"

	"cotcli/internal/frame"
	"cotcli/internal/window"
)

const deepUnwindNote = " Positioning is in the lowest 10% (deep unwinding)."

func positionLabels(pos []float64) []string {
	return ladder{
		missing: anyNaN(pos),
		rules: []rule{
			{LabelUnwound, func(i int) bool { return pos[i] < PositionUnwoundBelow }},
			{LabelNeutral, func(i int) bool { return pos[i] < PositionNeutralBelow }},
			{LabelCrowded, func(i int) bool { return pos[i] <= PositionCrowdedMax }},
		},
		fallback: LabelExtreme,
	}.eval(len(pos))
}

func deepFlags(pos []float64) []bool {
	out := make([]bool, len(pos))
	for i, p := range pos {
		out[i] = !math.IsNaN(p) && p < PositionDeepBelow
	}
	return out
}

func explainLabels(group string, activity, flow, pos []string, deep []bool) []string {
	out := make([]string, len(activity))
	for i := range out {
		if activity[i] == NotApply {
			out[i] = NotApply
			continue
		}
		out[i] = fmt.Sprintf("%s are %s with %s; positioning is %s.", group, activity[i], flow[i], pos[i])
		if deep[i] {
			out[i] += deepUnwindNote
		}
	}
	return out
}

// groupLights are one group's traffic-light labels for one scope.
type groupLights struct {
	activity, flow, position []string
	move                     []float64
}

// addTrafficLights labels each group's weekly activity, flow quality and
// positioning from move percentiles, rotation share and net position, then
// summarises funds against commercials as a consensus per scope.
func addTrafficLights(w *frame.Frame) {
	flow := map[string][]string{}
	for _, g := range LabelledGroups {
		flow[g] = bands(w.FloatOrNaN(col(g, "rotation_share_1w")),
			FlowDirectionalBelow, FlowRotationalAbove, LabelDirectional, LabelMixed, LabelRotational)
		w.SetString(col(g, "tl_flow_quality"), flow[g])
	}

	for _, scope := range Scopes {
		lights := map[string]groupLights{}
		for _, g := range LabelledGroups {
			move := w.FloatOrNaN(col(g, "net_move_pct", scope))
			pos := w.FloatOrNaN(col(g, "net_pos", scope))
			l := groupLights{
				activity: bands(move, ActivityQuietBelow, ActivityAggressiveAbove, LabelQuiet, LabelActive, LabelAggressive),
				flow:     flow[g],
				position: positionLabels(pos),
				move:     move,
			}
			deep := deepFlags(pos)
			w.SetString(col(g, "tl_activity", scope), l.activity)
			w.SetString(col(g, "tl_position", scope), l.position)
			w.SetBool(col(g, "tl_position_deep", scope), deep)
			w.SetString(col(g, "tl_explain", scope), explainLabels(groupName(g), l.activity, l.flow, l.position, deep))
			lights[g] = l
		}

		c := consensusFor(
			lights[GroupFunds], lights[GroupCommercials],
			w.MustFloat(col(GroupFunds, "net")), w.MustFloat(col(GroupCommercials, "net")),
			w.FloatOrNaN(col(GroupFunds, "rotation_share_1w")), w.FloatOrNaN(col(GroupCommercials, "rotation_share_1w")),
		)
		w.SetString(col("tl_consensus_type", scope), c.kind)
		w.SetString(col("tl_consensus_conviction", scope), c.conviction)
		w.SetString(col("tl_consensus_explain", scope), c.explain)
	}
}

type consensus struct {
	kind, conviction, explain []string
}

func activityScore(label string) int {
	switch label {
	case LabelActive:
		return 1
	case LabelAggressive:
		return 2
	}
	return 0
}

func flowMismatch(a, b string) bool {
	return (a == LabelDirectional && b == LabelRotational) || (a == LabelRotational && b == LabelDirectional)
}

func stretched(pos string) bool { return pos == LabelCrowded || pos == LabelExtreme }

func groupPhrase(group, activity, flow, pos string) string {
	return fmt.Sprintf("%s show %s %s positioning, with %s exposure.",
		group, strings.ToLower(activity), strings.ToLower(flow), strings.ToLower(pos))
}

// consensusFor compares funds and commercials row by row. The sign
// relationship is taken from net position levels.
func consensusFor(funds, comm groupLights, fundsNet, commNet, fundsRot, commRot []float64) consensus {
	n := len(fundsNet)
	c := consensus{kind: make([]string, n), conviction: make([]string, n), explain: make([]string, n)}
	missing := anyNA(funds.activity, comm.activity, funds.flow, comm.flow)

	for i := 0; i < n; i++ {
		if missing(i) {
			c.kind[i], c.conviction[i], c.explain[i] = NotApply, NotApply, NotApply
			continue
		}
		sf, sc := window.Sign(fundsNet[i]), window.Sign(commNet[i])
		engaged := isActive(funds.activity[i]) && isActive(comm.activity[i]) &&
			funds.flow[i] == LabelDirectional && comm.flow[i] == LabelDirectional
		fs, cs := activityScore(funds.activity[i]), activityScore(comm.activity[i])
		mismatch := flowMismatch(funds.flow[i], comm.flow[i])

		switch {
		case engaged && sf != 0 && sf == sc:
			c.kind[i] = ConsensusAlignment
			c.explain[i] = "Funds and Commercials are aligned in directional positioning."
		case engaged && window.Opposite(fundsNet[i], commNet[i]):
			c.kind[i] = ConsensusConflict
			c.explain[i] = "Funds and Commercials are in directional conflict."
		case absInt(fs-cs) >= 1 || mismatch:
			c.kind[i] = ConsensusAsymmetric
			c.explain[i] = groupPhrase("Funds", funds.activity[i], funds.flow[i], funds.position[i]) + " " +
				groupPhrase("Commercials", comm.activity[i], comm.flow[i], comm.position[i])
		default:
			c.kind[i] = LabelMixed
			c.explain[i] = "Mixed signals."
		}

		posMismatch := (stretched(funds.position[i]) && comm.position[i] == LabelUnwound) ||
			(stretched(comm.position[i]) && funds.position[i] == LabelUnwound)
		switch {
		case nanMax(funds.move[i], comm.move[i]) > ConvictionMovePct && nanMin(fundsRot[i], commRot[i]) < ConvictionRotationMax:
			c.conviction[i] = LevelHigh
		case c.kind[i] == ConsensusAsymmetric && (mismatch || posMismatch):
			c.conviction[i] = LevelMedium
		default:
			c.conviction[i] = LevelLow
		}
	}
	return c
}

func isActive(label string) bool { return label == LabelActive || label == LabelAggressive }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
