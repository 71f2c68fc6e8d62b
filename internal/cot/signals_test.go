package cot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cotcli/internal/frame"
)

var nan = math.NaN()

func singleMarket(n int) *frame.Frame {
	keys := make([]frame.Key, n)
	start := time.Date(2020, 1, 7, 0, 0, 0, 0, time.UTC)
	for i := range keys {
		keys[i] = frame.NewKey("m", start.AddDate(0, 0, 7*i))
	}
	return frame.New("test", keys)
}

func TestFlowLabels(t *testing.T) {
	tests := []struct {
		name             string
		long, short, net float64
		expected         string
	}{
		{"opposite legs with dominant net", 10, -5, 15, LabelDirectional},
		{"same direction legs", 10, 8, 2, LabelRotational},
		{"opposite legs but small net", 10, -9, 0.5, LabelRotational},
		{"only long moved", 10, 0, 10, LabelRotational},
		{"net unchanged", 5, 5, 0, LabelRotational},
		{"nothing moved", 0, 0, 0, NotApply},
		{"missing delta", nan, 4, nan, NotApply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flowLabels(groupFlow{
				long:  []float64{tt.long},
				short: []float64{tt.short},
				net:   []float64{tt.net},
			})
			assert.Equal(t, tt.expected, got[0])
		})
	}
}

func TestFundsPositioning(t *testing.T) {
	z := []float64{2.1, 1.5, 1.2, 1.0, 0.3, -0.99, -1.0, -1.4, -1.5, -3, nan}
	expected := []string{
		LabelCrowdedLong, LabelCrowdedLong, LabelExtendedLong, LabelExtendedLong, LabelBalanced,
		LabelBalanced, LabelExtendedShort, LabelExtendedShort, LabelCrowdedShort, LabelCrowdedShort, NotApply,
	}
	assert.Equal(t, expected, fundsPositioning(z))
}

func TestActivityLabels(t *testing.T) {
	f := singleMarket(30)
	delta := make([]float64, 30)
	delta[0] = nan
	for i := 1; i < 30; i++ {
		delta[i] = float64(i % 5)
	}
	delta[29] = 100

	got := activityLabels(f, delta)

	// fewer than 26 observations in the window
	assert.Equal(t, NotApply, got[0])
	assert.Equal(t, NotApply, got[25])
	assert.Equal(t, LabelAggressive, got[29])
	assert.Equal(t, LabelNormal, got[26], "|delta| of 1 is below the 75th percentile")
}

func TestActivityLabels_AtPercentile(t *testing.T) {
	f := singleMarket(27)
	delta := make([]float64, 27)
	delta[0] = nan
	for i := 1; i < 27; i++ {
		delta[i] = -3
	}

	got := activityLabels(f, delta)
	assert.Equal(t, LabelAggressive, got[26], "|delta| equal to the 75th percentile is aggressive")
}

func TestCommercialsPositioning_Unwound(t *testing.T) {
	f := singleMarket(3)
	z := []float64{nan, 1.8, 0.2}
	net := []float64{500, 800, 300}
	delta := []float64{nan, 300, -500}
	activity := []string{NotApply, LabelNormal, LabelAggressive}
	flow := []string{NotApply, LabelDirectional, LabelDirectional}

	got := commercialsPositioning(f, z, net, activity, flow, delta)
	assert.Equal(t, []string{LabelBalanced, LabelCrowdedLong, LabelUnwound}, got)

	// a smaller prior z does not trigger the override
	z[1] = 0.5
	got = commercialsPositioning(f, z, net, activity, flow, delta)
	assert.Equal(t, LabelBalanced, got[2])
}

func TestConflictLevels(t *testing.T) {
	aggr := []string{LabelAggressive, LabelAggressive, LabelNormal, LabelAggressive}
	dir := []string{LabelDirectional, LabelDirectional, LabelDirectional, LabelDirectional}
	normal := []string{LabelAggressive, LabelNormal, LabelNormal, LabelAggressive}

	fundsDelta := []float64{100, 100, 100, 100}
	commDelta := []float64{-50, -50, -50, 50}

	got := conflictLevels(aggr, dir, normal, dir, fundsDelta, commDelta)
	assert.Equal(t, []string{LevelHigh, LevelMedium, LevelLow, LevelLow}, got)
}

func TestRiskLevels(t *testing.T) {
	oiZ := []float64{0.5, 1.6, 2.2, 2.2, 0, nan}
	comm := []string{LabelBalanced, LabelCrowdedLong, LabelBalanced, LabelCrowdedShort, LabelCrowdedLong, LabelCrowdedLong}
	conflict := []string{LevelHigh, LevelLow, LevelLow, LevelHigh, LevelLow, LevelHigh}

	got := riskLevels(oiZ, comm, conflict)
	assert.Equal(t, []string{LevelLow, LevelElevated, LevelElevated, LevelHigh, LevelLow, NotApply}, got)
}

func TestTrafficSignal(t *testing.T) {
	tests := []struct {
		name             string
		fundsD, commD, z float64
		conflict         string
		expected         int64
	}{
		{"bullish flows", 10, 10, 0, LevelLow, 1},
		{"commercials buy, funds sell", -10, 10, 0, LevelLow, 0},
		{"funds washed out and commercials buying", 10, 10, -2, LevelLow, 2},
		{"clamped at the floor", -10, -10, 1.8, LevelHigh, -2},
		{"missing z adds nothing", 10, 10, nan, LevelLow, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trafficSignal([]float64{tt.fundsD}, []float64{tt.commD}, []float64{tt.z}, []string{tt.conflict})
			assert.Equal(t, tt.expected, got[0])
		})
	}
}

func TestBands(t *testing.T) {
	got := bands([]float64{0.1, 0.3, 0.7, 0.71, nan}, ActivityQuietBelow, ActivityAggressiveAbove,
		LabelQuiet, LabelActive, LabelAggressive)
	assert.Equal(t, []string{LabelQuiet, LabelActive, LabelActive, LabelAggressive, NotApply}, got)
}

func TestPositionLabels(t *testing.T) {
	pos := []float64{0.05, 0.2, 0.69, 0.7, 0.9, 0.95, nan}
	assert.Equal(t,
		[]string{LabelUnwound, LabelNeutral, LabelNeutral, LabelCrowded, LabelCrowded, LabelExtreme, NotApply},
		positionLabels(pos))
	assert.Equal(t, []bool{true, false, false, false, false, false, false}, deepFlags(pos))
}

func TestExplainLabels(t *testing.T) {
	got := explainLabels("Funds",
		[]string{LabelActive, NotApply},
		[]string{LabelDirectional, LabelMixed},
		[]string{LabelUnwound, LabelNeutral},
		[]bool{true, false})

	assert.Equal(t, "Funds are Active with Directional; positioning is Unwound. Positioning is in the lowest 10% (deep unwinding).", got[0])
	assert.Equal(t, NotApply, got[1])
}

func TestConsensusFor(t *testing.T) {
	funds := groupLights{
		activity: []string{LabelAggressive, LabelActive, LabelAggressive, LabelQuiet, LabelQuiet, NotApply},
		flow:     []string{LabelDirectional, LabelDirectional, LabelDirectional, LabelMixed, LabelDirectional, LabelDirectional},
		position: []string{LabelCrowded, LabelNeutral, LabelCrowded, LabelNeutral, LabelCrowded, LabelNeutral},
		move:     []float64{0.9, 0.5, 0.4, 0.1, 0.2, 0.9},
	}
	comm := groupLights{
		activity: []string{LabelActive, LabelActive, LabelQuiet, LabelQuiet, LabelQuiet, LabelActive},
		flow:     []string{LabelDirectional, LabelDirectional, LabelRotational, LabelMixed, LabelRotational, LabelDirectional},
		position: []string{LabelNeutral, LabelNeutral, LabelUnwound, LabelNeutral, LabelUnwound, LabelNeutral},
		move:     []float64{0.5, 0.5, 0.1, 0.1, 0.2, 0.5},
	}
	fundsNet := []float64{100, 100, 100, 100, 100, 100}
	commNet := []float64{50, -50, -50, -50, -50, 50}
	rot := []float64{0.2, 0.2, 0.2, 0.5, 0.2, 0.2}

	c := consensusFor(funds, comm, fundsNet, commNet, rot, rot)

	assert.Equal(t, []string{ConsensusAlignment, ConsensusConflict, ConsensusAsymmetric, LabelMixed, ConsensusAsymmetric, NotApply}, c.kind)
	assert.Equal(t, []string{LevelHigh, LevelLow, LevelMedium, LevelLow, LevelMedium, NotApply}, c.conviction)
	assert.Equal(t, "Funds and Commercials are aligned in directional positioning.", c.explain[0])
	assert.Equal(t, "Funds and Commercials are in directional conflict.", c.explain[1])
	assert.Equal(t,
		"Funds show aggressive directional positioning, with crowded exposure. Commercials show quiet rotational positioning, with unwound exposure.",
		c.explain[2])
	assert.Equal(t, "Mixed signals.", c.explain[3])
}
