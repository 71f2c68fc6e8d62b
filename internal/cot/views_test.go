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

// viewFixture is a hand-built wide slice: gold has two weeks, corn one week
// that ends earlier than gold's latest.
func viewFixture() *frame.Frame {
	d := func(day int) time.Time { return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC) }
	f := frame.New(TableMetrics, []frame.Key{
		frame.NewKey("gold", d(5)),
		frame.NewKey("gold", d(12)),
		frame.NewKey("corn", d(5)),
	})
	f.SetString("category", []string{"Metals", "Metals", "Grains"})
	f.SetInt("cot_traffic_signal", []int64{0, -2, 1})
	f.SetString("conflict_level", []string{LevelLow, LevelHigh, LevelLow})
	f.SetString("oi_regime", []string{RegimeMixed, RegimeExpansionLate, RegimeNeutral})
	f.SetFloat("oi_z_52w", []float64{0.1, 2.3, math.NaN()})
	f.SetString("oi_risk_level", []string{LevelLow, LevelHigh, NotApply})
	f.SetFloat("net_z_52w_funds", []float64{0.2, 1.7, -0.4})
	f.SetFloat("net_z_52w_commercials", []float64{-0.1, -1.2, 0})
	f.SetFloat("nc_net", []float64{1000, 1200, -300})
	f.SetFloat("nc_net_chg_1w", []float64{math.NaN(), 200, 40})
	f.SetFloat("comm_net", []float64{-900, -1100, 250})
	f.SetFloat("comm_net_chg_1w", []float64{math.NaN(), -200, -10})
	f.SetFloat("nr_net", []float64{-100, -100, 50})
	f.SetFloat("nr_net_chg_1w", []float64{math.NaN(), 0, -30})
	f.SetFloat("open_interest", []float64{10000, 12000, 5000})
	f.SetFloat("open_interest_chg_1w", []float64{math.NaN(), 2000, 0})
	f.SetFloat("open_interest_chg_1w_pct", []float64{math.NaN(), 0.2, 0})
	return f
}

var viewCatalog = Catalog{
	"gold": {Key: "gold", DisplayName: "Gold (COMEX)", Category: "Metals"},
}

func TestBuildRadar(t *testing.T) {
	radar, err := BuildRadar(viewFixture(), viewCatalog)
	require.NoError(t, err)
	require.Equal(t, 2, radar.Len())

	// sorted by market, each at its own latest date
	assert.Equal(t, "corn", radar.Key(0).Market)
	assert.Equal(t, 5, radar.Key(0).Date.Day())
	assert.Equal(t, "gold", radar.Key(1).Market)
	assert.Equal(t, 12, radar.Key(1).Date.Day())

	assert.Equal(t, []string{"corn", "Gold (COMEX)"}, radar.MustString("market_name"))
	assert.Equal(t, []string{"corn", "gold"}, radar.MustString("market_id"))

	assert.Equal(t, []bool{true, true}, radar.MustBool("is_hot"))
	// gold: 2*2 signal + 2 conflict + 1 risk + 1 oi z + 1 funds z
	assert.Equal(t, []float64{2, 9}, radar.MustFloat("hot_score"))
	assert.Equal(t, []bool{false, true}, radar.MustBool("funds_crowded"))
	assert.Equal(t, []bool{false, true}, radar.MustBool("commercial_opposition"))
	assert.Equal(t, []bool{false, true}, radar.MustBool("confirmed_imbalance"))

	tags := radar.MustString("why_tags")
	assert.Equal(t, "", tags[0])
	assert.Equal(t, "High Conflict | Funds Crowded (Z=+1.7) | OI: Expansion (Late) | OI Risk: High", tags[1])

	assert.Equal(t, []float64{-300, 1200}, radar.MustFloat("funds_net"))
	assert.Equal(t, []float64{0, 2000}, radar.MustFloat("open_interest_chg_1w"))
}

func TestBuildRadar_NotHot(t *testing.T) {
	f := viewFixture().Take([]int{0})
	radar, err := BuildRadar(f, nil)
	require.NoError(t, err)

	assert.Equal(t, []bool{false}, radar.MustBool("is_hot"))
	assert.Equal(t, []float64{0}, radar.MustFloat("hot_score"))
	assert.Equal(t, "gold", radar.MustString("market_name")[0])
}

func TestBuildRadar_MissingColumns(t *testing.T) {
	_, err := BuildRadar(viewFixture().Select("category"), viewCatalog)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestBuildPositioning(t *testing.T) {
	pos, err := BuildPositioning(viewFixture(), viewCatalog)
	require.NoError(t, err)
	require.Equal(t, 2, pos.Len())

	// gold: prior open interest is 12000 - 2000
	assert.InDelta(t, 0.02, pos.MustFloat("funds_pct_oi_chg_1w")[1], 1e-12)
	assert.InDelta(t, -0.02, pos.MustFloat("comm_pct_oi_chg_1w")[1], 1e-12)
	assert.Equal(t, 0.0, pos.MustFloat("small_pct_oi_chg_1w")[1])
	assert.InDelta(t, 0.008, pos.MustFloat("funds_pct_oi_chg_1w")[0], 1e-12)

	assert.Equal(t, []float64{-0.4, 1.7}, pos.MustFloat("funds_z_52w"))
	assert.Equal(t, []float64{0, -1.2}, pos.MustFloat("comm_z_52w"))

	tags := pos.MustString("why_tags")
	assert.Equal(t, "", tags[0], "a zero commercials z is not opposition")
	assert.Equal(t, "High conflict | Commercials opposite | Funds crowded (Z=+1.7)", tags[1])
}

func TestViews_FromPipeline(t *testing.T) {
	wide := buildWide(t,
		testutil.TrendingMarket("alpha", "000001", 120),
		testutil.TrendingMarket("beta", "000002", 80),
	)

	radar, err := BuildRadar(wide, testCatalog)
	require.NoError(t, err)
	positioning, err := BuildPositioning(wide, testCatalog)
	require.NoError(t, err)

	for _, v := range []*frame.Frame{radar, positioning} {
		require.Equal(t, 2, v.Len())
		assert.Empty(t, v.DuplicateKeys())
		assert.Equal(t, []string{"Energy", "Metals"}, v.MustString("category"))
	}
	assert.Equal(t, testutil.FirstReportDate.AddDate(0, 0, 7*119), radar.Key(0).Date)
	assert.Equal(t, testutil.FirstReportDate.AddDate(0, 0, 7*79), radar.Key(1).Date)
	for _, s := range radar.MustFloat("hot_score") {
		assert.GreaterOrEqual(t, s, 0.0)
	}
}
