package cot

import "strings"

// Trader groups: non-commercial (funds), commercial (hedgers) and
// non-reportable (small traders).
const (
	GroupFunds       = "nc"
	GroupCommercials = "comm"
	GroupSmall       = "nr"
)

var (
	// Groups lists every trader group in output order.
	Groups = []string{GroupFunds, GroupCommercials, GroupSmall}
	// Metrics lists the position fields derived for each group.
	Metrics = []string{"long", "short", "total", "net"}
	// LabelledGroups are the groups that carry traffic-light labels.
	LabelledGroups = []string{GroupFunds, GroupCommercials}
)

// Window suffixes used in column names.
const (
	ScopeAll = "all"
	Scope5y  = "5y"
)

// NotApply marks a label whose inputs are missing.
const NotApply = "N/A"

const (
	flowEps    = 1e-9
	signEps    = 1e-6
	oiDeltaLag = 4
	signalCap  = 2
)

// Scopes lists the two extreme/percentile windows.
var Scopes = []string{ScopeAll, Scope5y}

// Positioning and regime thresholds on z-scores.
const (
	ZCrowded  = 1.5
	ZExtended = 1.0
	ZExtreme  = 2.0
	ZNeutral  = 1.0
	ZRebuild  = -1.0
)

// Activity, driver and unwind thresholds.
const (
	ActivityQuantile      = 0.75
	DriverShare           = 0.6
	SmallMoveFraction     = 0.05
	DirectionalNetShare   = 0.5
	UnwindPriorZ          = 1.0
	ConvictionMovePct     = 0.70
	ConvictionRotationMax = 0.40
)

// Traffic-light label cut points on percentiles and shares.
const (
	ActivityQuietBelow      = 0.30
	ActivityAggressiveAbove = 0.70
	FlowDirectionalBelow    = 0.40
	FlowRotationalAbove     = 0.60
	PositionUnwoundBelow    = 0.20
	PositionNeutralBelow    = 0.70
	PositionCrowdedMax      = 0.90
	PositionDeepBelow       = 0.10
	StrengthWeakBelow       = 0.33
	StrengthModerateMax     = 0.67
)

// Labels.
const (
	LabelAggressive = "Aggressive"
	LabelNormal     = "Normal"
	LabelActive     = "Active"
	LabelQuiet      = "Quiet"

	LabelDirectional = "Directional"
	LabelRotational  = "Rotational"
	LabelMixed       = "Mixed"

	LabelCrowdedLong   = "Crowded Long"
	LabelExtendedLong  = "Extended Long"
	LabelBalanced      = "Balanced"
	LabelExtendedShort = "Extended Short"
	LabelCrowdedShort  = "Crowded Short"
	LabelUnwound       = "Unwound"
	LabelNeutral       = "Neutral"
	LabelCrowded       = "Crowded"
	LabelExtreme       = "Extreme"

	LevelLow      = "Low"
	LevelMedium   = "Medium"
	LevelHigh     = "High"
	LevelElevated = "Elevated"

	RegimeExpansionEarly = "Expansion_Early"
	RegimeExpansionLate  = "Expansion_Late"
	RegimeDistribution   = "Distribution"
	RegimeNeutral        = "Neutral"
	RegimeRebuild        = "Rebuild"
	RegimeMixed          = "Mixed"

	DriverFunds       = "Funds"
	DriverCommercials = "Commercials"

	ConsensusAlignment  = "Alignment"
	ConsensusConflict   = "Conflict"
	ConsensusAsymmetric = "Asymmetric"
)

func col(parts ...string) string {
	return strings.Join(parts, "_")
}

func groupName(g string) string {
	switch g {
	case GroupFunds:
		return "Funds"
	case GroupCommercials:
		return "Commercials"
	default:
		return "Small traders"
	}
}
