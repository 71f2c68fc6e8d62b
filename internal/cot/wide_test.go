package cot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cotcli/internal/errors"
	"cotcli/internal/frame"
	"cotcli/internal/shared/testutil"
)

var testCatalog = Catalog{
	"alpha": {Key: "alpha", ContractCode: "000001", Category: "Energy", DisplayName: "Alpha Crude"},
	"beta":  {Key: "beta", ContractCode: "000002", Category: "Metals"},
}

func buildWide(t *testing.T, markets ...testutil.MarketFixture) *frame.Frame {
	t.Helper()
	canonical := testutil.CanonicalFrame(markets...)
	wide, err := BuildWideMetrics(buildStages(t, canonical), canonical, testCatalog)
	require.NoError(t, err)
	return wide
}

func assertLabelsIn(t *testing.T, f *frame.Frame, name string, allowed ...string) {
	t.Helper()
	set := map[string]bool{}
	for _, a := range allowed {
		set[a] = true
	}
	for i, v := range f.MustString(name) {
		assert.True(t, set[v], "%s row %d has unexpected label %q", name, i, v)
	}
}

func TestBuildWideMetrics_OneRowPerKey(t *testing.T) {
	canonical := testutil.CanonicalFrame(
		testutil.TrendingMarket("alpha", "000001", 300),
		testutil.TrendingMarket("beta", "000002", 40),
	)
	stages := buildStages(t, canonical)

	wide, err := BuildWideMetrics(stages, canonical, testCatalog)
	require.NoError(t, err)

	assert.Equal(t, stages.Positions.Len(), wide.Len())
	assert.Empty(t, wide.DuplicateKeys())
	assert.Equal(t, TableMetrics, wide.Name())

	for _, name := range []string{"nc_net", "nc_net_chg_1w", "nc_rotation_share_1w", "nc_net_ma_13w", "nc_net_pos_5y", "nc_net_move_pct_all"} {
		assert.True(t, wide.Has(name), name)
	}
	assert.Equal(t, "Energy", wide.MustString("category")[0])
	assert.Equal(t, "000002", wide.MustString("contract_code")[wide.Len()-1])
}

func TestBuildWideMetrics_Labels(t *testing.T) {
	wide := buildWide(t,
		testutil.TrendingMarket("alpha", "000001", 300),
		testutil.TrendingMarket("beta", "000002", 60),
	)

	assertLabelsIn(t, wide, "activity_funds", LabelAggressive, LabelNormal, NotApply)
	assertLabelsIn(t, wide, "flow_commercials", LabelDirectional, LabelRotational, NotApply)
	assertLabelsIn(t, wide, "positioning_funds", LabelCrowdedLong, LabelExtendedLong, LabelBalanced,
		LabelExtendedShort, LabelCrowdedShort, NotApply)
	assertLabelsIn(t, wide, "positioning_commercials", LabelCrowdedLong, LabelCrowdedShort, LabelBalanced,
		LabelUnwound)
	assertLabelsIn(t, wide, "conflict_level", LevelLow, LevelMedium, LevelHigh)
	assertLabelsIn(t, wide, "oi_risk_level", LevelLow, LevelElevated, LevelHigh, NotApply)
	assertLabelsIn(t, wide, "oi_regime", RegimeExpansionEarly, RegimeExpansionLate, RegimeDistribution,
		RegimeNeutral, RegimeRebuild, RegimeMixed, NotApply)
	assertLabelsIn(t, wide, "oi_driver", DriverFunds, DriverCommercials, RegimeMixed, NotApply)
	assertLabelsIn(t, wide, "open_interest_regime_all", "Expansion", "Contraction", "Flat", NotApply)
	for _, scope := range Scopes {
		assertLabelsIn(t, wide, "nc_tl_activity_"+scope, LabelQuiet, LabelActive, LabelAggressive, NotApply)
		assertLabelsIn(t, wide, "comm_tl_position_"+scope, LabelUnwound, LabelNeutral, LabelCrowded, LabelExtreme, NotApply)
		assertLabelsIn(t, wide, "tl_consensus_type_"+scope, ConsensusAlignment, ConsensusConflict,
			ConsensusAsymmetric, LabelMixed, NotApply)
		assertLabelsIn(t, wide, "tl_consensus_conviction_"+scope, LevelLow, LevelMedium, LevelHigh, NotApply)
	}

	for _, s := range wide.MustInt("cot_traffic_signal") {
		assert.GreaterOrEqual(t, s, int64(-2))
		assert.LessOrEqual(t, s, int64(2))
	}
}

func TestBuildWideMetrics_ZScoreMaturity(t *testing.T) {
	wide := buildWide(t, testutil.TrendingMarket("alpha", "000001", 60))
	z := wide.MustFloat("net_z_52w_funds")
	for i := 0; i < 25; i++ {
		assert.True(t, math.IsNaN(z[i]), "row %d", i)
	}
	assert.False(t, math.IsNaN(z[30]))

	// commercials positioning has no N/A: immature weeks read as Balanced
	assert.Equal(t, []string{LabelBalanced, LabelBalanced, LabelBalanced, LabelBalanced},
		wide.MustString("positioning_commercials")[:4])
	assert.Equal(t, NotApply, wide.MustString("positioning_funds")[0])

	// the first week has no change so nothing downstream of it can be labelled
	assert.Equal(t, NotApply, wide.MustString("flow_funds")[0])
	assert.Equal(t, NotApply, wide.MustString("nc_tl_activity_all")[0])
	assert.Equal(t, NotApply, wide.MustString("nc_tl_explain_all")[0])
	assert.Equal(t, NotApply, wide.MustString("tl_consensus_type_all")[0])
}

func TestBuildWideMetrics_SharedScale(t *testing.T) {
	wide := buildWide(t, testutil.TrendingMarket("alpha", "000001", 100))
	nc := wide.MustFloat("nc_net")
	comm := wide.MustFloat("comm_net")
	lo := wide.MustFloat("fc_net_min_all")
	hi := wide.MustFloat("fc_net_max_all")
	posNC := wide.MustFloat("fc_net_pos_nc_all")

	for i := range nc {
		assert.LessOrEqual(t, lo[i], math.Min(nc[i], comm[i]))
		assert.GreaterOrEqual(t, hi[i], math.Max(nc[i], comm[i]))
		assert.GreaterOrEqual(t, posNC[i], 0.0)
		assert.LessOrEqual(t, posNC[i], 1.0)
	}
}

func TestBuildWideMetrics_OpenInterest(t *testing.T) {
	wide := buildWide(t, testutil.TrendingMarket("alpha", "000001", 10))
	oi := wide.MustFloat("open_interest")
	chg := wide.MustFloat("open_interest_chg_1w")
	pct := wide.MustFloat("open_interest_chg_1w_pct")

	assert.True(t, math.IsNaN(chg[0]))
	assert.Equal(t, NotApply, wide.MustString("open_interest_regime_all")[0])
	for i := 1; i < len(oi); i++ {
		assert.InDelta(t, oi[i]-oi[i-1], chg[i], 1e-9)
		assert.InDelta(t, chg[i]/oi[i-1], pct[i], 1e-12)
	}
}

func TestBuildWideMetrics_JoinIntegrity(t *testing.T) {
	canonical := testutil.CanonicalFrame(testutil.TrendingMarket("alpha", "000001", 5))

	t.Run("duplicate key in a stage", func(t *testing.T) {
		stages := buildStages(t, canonical)
		keys := append([]frame.Key{}, stages.Moves.Keys()...)
		keys[1] = keys[0]
		dup := frame.New(TableMoves, keys)
		dup.SetFloat("nc_net_move_pct_all", make([]float64, len(keys)))
		stages.Moves = dup

		_, err := BuildWideMetrics(stages, canonical, testCatalog)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIntegrity))
		assert.ErrorIs(t, err, frame.ErrDuplicateKeys)
	})

	t.Run("missing stage", func(t *testing.T) {
		stages := buildStages(t, canonical)
		stages.Rolling = nil

		_, err := BuildWideMetrics(stages, canonical, testCatalog)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIntegrity))
	})

	t.Run("empty positions", func(t *testing.T) {
		stages := buildStages(t, canonical)
		stages.Positions = frame.New(TablePositions, nil)

		_, err := BuildWideMetrics(stages, canonical, testCatalog)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIntegrity))
	})
}

func TestBuildWideMetrics_MissingStageRowsAreNaN(t *testing.T) {
	canonical := testutil.CanonicalFrame(testutil.TrendingMarket("alpha", "000001", 6))
	stages := buildStages(t, canonical)

	// drop the last week from the rolling table
	rows := []int{0, 1, 2, 3, 4}
	stages.Rolling = stages.Rolling.Take(rows)

	wide, err := BuildWideMetrics(stages, canonical, testCatalog)
	require.NoError(t, err)
	require.Equal(t, 6, wide.Len())
	assert.True(t, math.IsNaN(wide.MustFloat("nc_net_ma_13w")[5]))
	assert.Equal(t, time.Date(2015, 2, 10, 0, 0, 0, 0, time.UTC), wide.Key(5).Date)
}
