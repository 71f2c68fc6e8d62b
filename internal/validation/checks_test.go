package validation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotcli/internal/cot"
	"cotcli/internal/frame"
	"cotcli/internal/shared/testutil"
)

var defaultThresholds = Thresholds{OIChangeInfo: 0.35, OIChangeWarn: 0.50}

// compute runs every stage over the fixtures and returns positions and the
// wide table.
func compute(t *testing.T, markets ...testutil.MarketFixture) (*frame.Frame, *frame.Frame) {
	t.Helper()
	canonical := testutil.CanonicalFrame(markets...)
	positions, err := cot.BuildPositions(canonical)
	require.NoError(t, err)
	changes, err := cot.BuildChanges(positions)
	require.NoError(t, err)
	flows, err := cot.BuildFlows(changes)
	require.NoError(t, err)
	rolling, err := cot.BuildRolling(positions)
	require.NoError(t, err)
	extremes, err := cot.BuildExtremes(positions)
	require.NoError(t, err)
	moves, err := cot.BuildMoves(changes)
	require.NoError(t, err)

	wide, err := cot.BuildWideMetrics(cot.StageTables{
		Positions: positions, Changes: changes, Flows: flows,
		Rolling: rolling, Extremes: extremes, Moves: moves,
	}, canonical, nil)
	require.NoError(t, err)
	return positions, wide
}

// replace overwrites one value of a float column without touching the
// original slice.
func replace(f *frame.Frame, name string, i int, v float64) {
	xs := append([]float64(nil), f.MustFloat(name)...)
	xs[i] = v
	f.SetFloat(name, xs)
}

func TestCheckMetrics_Clean(t *testing.T) {
	positions, wide := compute(t,
		testutil.TrendingMarket("alpha", "000001", 300),
		testutil.TrendingMarket("beta", "000002", 40),
	)

	var r Report
	CheckMetrics(&r, wide, positions, defaultThresholds)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestCheckMetrics_Fatal(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *frame.Frame)
		want   string
	}{
		{"pos_all out of range", func(f *frame.Frame) { replace(f, "nc_long_pos_all", 3, 1.5) }, "nc_long_pos_all has 1 values outside [0,1]"},
		{"pos_all NaN", func(f *frame.Frame) { replace(f, "comm_net_pos_all", 0, math.NaN()) }, "comm_net_pos_all has 1 NaN values"},
		{"pos_5y out of range", func(f *frame.Frame) { replace(f, "nr_short_pos_5y", 70, -0.1) }, "nr_short_pos_5y has 1 values outside [0,1]"},
		{"max below min", func(f *frame.Frame) { replace(f, "nc_net_max_all", 5, -1e12) }, "nc_net_max_all < nc_net_min_all (or undefined) on 1 rows"},
		{"first week change", func(f *frame.Frame) { replace(f, "nc_long_chg_1w", 0, 4) }, "nc_long_chg_1w is defined on the first week of 1 markets"},
		{"net change identity", func(f *frame.Frame) { replace(f, "comm_net_chg_1w", 10, 1e9) }, "comm_net_chg_1w != comm_long_chg_1w - comm_short_chg_1w on 1 rows"},
		{"oi percentile", func(f *frame.Frame) { replace(f, "open_interest_pct_all", 2, 2) }, "open_interest_pct_all has 1 values outside [0,1]"},
		{"move percentile", func(f *frame.Frame) { replace(f, "nc_net_move_pct_5y", 100, 1.01) }, "nc_net_move_pct_5y has 1 values outside [0,1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions, wide := compute(t, testutil.TrendingMarket("alpha", "000001", 120))
			tt.mutate(wide)

			var r Report
			CheckMetrics(&r, wide, positions, defaultThresholds)
			assert.Contains(t, r.Errors, tt.want)
		})
	}
}

func TestCheckMetrics_RowParity(t *testing.T) {
	positions, wide := compute(t, testutil.TrendingMarket("alpha", "000001", 30))

	var r Report
	CheckMetrics(&r, wide.Take([]int{0, 1, 2}), positions, defaultThresholds)
	require.NotEmpty(t, r.Errors)
	assert.Contains(t, r.Errors[0], "expected a 1:1 join")
}

func TestCheckMetrics_MissingColumns(t *testing.T) {
	positions, wide := compute(t, testutil.TrendingMarket("alpha", "000001", 30))

	var r Report
	CheckMetrics(&r, wide.Select("nc_long", "nc_short"), positions, defaultThresholds)
	assert.Contains(t, r.Errors, "metrics_weekly is missing required column comm_net")
	assert.Contains(t, r.Errors, "metrics_weekly is missing required column open_interest")
}

func TestCheckMetrics_Empty(t *testing.T) {
	positions, wide := compute(t, testutil.TrendingMarket("alpha", "000001", 30))

	var r Report
	CheckMetrics(&r, wide.Take(nil), positions, defaultThresholds)
	assert.Equal(t, []string{"metrics_weekly has 0 rows"}, r.Errors)
}

func TestCheckMetrics_MappingBug(t *testing.T) {
	m := testutil.TrendingMarket("alpha", "000001", 60)
	for i := range m.Rows {
		m.Rows[i].CommLong = m.Rows[i].NCLong
		m.Rows[i].CommShort = m.Rows[i].NCShort
	}
	positions, wide := compute(t, m)

	var r Report
	CheckMetrics(&r, wide, positions, defaultThresholds)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "mapping bug")

	// a single differing row is enough under the 99.9% guard for short histories
	m.Rows[10].CommLong++
	positions, wide = compute(t, m)
	r = Report{}
	CheckMetrics(&r, wide, positions, defaultThresholds)
	assert.Empty(t, r.Errors)
}

func TestCheckMetrics_OpenInterestFindings(t *testing.T) {
	positions, wide := compute(t, testutil.TrendingMarket("alpha", "000001", 40))
	replace(wide, "open_interest_chg_1w_pct", 5, 0.4)
	replace(wide, "open_interest_chg_1w_pct", 6, -0.6)
	replace(wide, "open_interest", 20, math.NaN())

	var r Report
	CheckMetrics(&r, wide, positions, defaultThresholds)
	assert.Empty(t, r.Errors)
	assert.Equal(t, []string{"open_interest_chg_1w_pct exceeds 0.35 on 2 of 39 weeks (5.13%) in alpha"}, r.Infos)
	assert.Equal(t, []string{
		"market alpha has 1 weeks with open_interest missing mid-history",
		"open_interest_chg_1w_pct exceeds 0.50 on 1 of 39 weeks (2.56%) in alpha",
	}, r.Warnings)
}

func TestCheckCanonical(t *testing.T) {
	m := testutil.TrendingMarket("alpha", "000001", 5)
	m.Rows[2].OpenInterest = -1
	var r Report
	CheckCanonical(&r, testutil.CanonicalFrame(m))
	assert.Equal(t, []string{"canonical has 1 rows with negative open_interest_all"}, r.Warnings)
}

func TestCheckPositions_MissingWeeks(t *testing.T) {
	d := testutil.FirstReportDate
	f := frame.New("positions_weekly", []frame.Key{
		frame.NewKey("alpha", d),
		frame.NewKey("alpha", d.AddDate(0, 0, 7)),
		frame.NewKey("alpha", d.AddDate(0, 0, 28)),
		frame.NewKey("beta", d),
		frame.NewKey("beta", d.Add(7*24*time.Hour)),
	})

	var r Report
	CheckPositions(&r, f)
	assert.Equal(t, []string{"market alpha has 2 missing weeks (first gap after 2015-01-13)"}, r.Warnings)
}
