package services

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"cotcli/internal/config"
	"cotcli/internal/cot"
	"cotcli/internal/frame"
	"cotcli/internal/shared/testutil"
)

const testMarketsYAML = `markets:
  - market_key: alpha
    contract_code: "000001"
    category: Metals
    display_name: Alpha Metal
  - market_key: beta
    contract_code: "000002"
    category: Energy
    display_name: Beta Crude
  - market_key: gamma
    contract_code: "000003"
    category: Grains
`

func testMarkets(t *testing.T) *config.Markets {
	t.Helper()
	m, err := config.ParseMarkets([]byte(testMarketsYAML))
	require.NoError(t, err)
	return m
}

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.PathsConfig{
		Root:       t.TempDir(),
		Canonical:  "canonical.csv",
		Markets:    "markets.yaml",
		ComputeDir: "compute",
	}.Resolve()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

// publish computes alpha (80 weeks) and beta (60 weeks) and writes the
// metrics and view tables the way a compute run does.
func publish(t *testing.T, paths *config.Paths, catalog cot.Catalog) {
	t.Helper()
	canonical := testutil.CanonicalFrame(
		testutil.TrendingMarket("alpha", "000001", 80),
		testutil.TrendingMarket("beta", "000002", 60),
	)

	var st cot.StageTables
	var err error
	st.Positions, err = cot.BuildPositions(canonical)
	require.NoError(t, err)
	st.Changes, err = cot.BuildChanges(st.Positions)
	require.NoError(t, err)
	st.Flows, err = cot.BuildFlows(st.Changes)
	require.NoError(t, err)
	st.Rolling, err = cot.BuildRolling(st.Positions)
	require.NoError(t, err)
	st.Extremes, err = cot.BuildExtremes(st.Positions)
	require.NoError(t, err)
	st.Moves, err = cot.BuildMoves(st.Changes)
	require.NoError(t, err)

	wide, err := cot.BuildWideMetrics(st, canonical, catalog)
	require.NoError(t, err)
	radar, err := cot.BuildRadar(wide, catalog)
	require.NoError(t, err)
	positioning, err := cot.BuildPositioning(wide, catalog)
	require.NoError(t, err)

	for _, f := range []*frame.Frame{radar, positioning, wide} {
		writeTable(t, paths, f)
	}
}

func writeTable(t *testing.T, paths *config.Paths, f *frame.Frame) {
	t.Helper()
	fh, err := os.Create(paths.TablePath(f.Name()))
	require.NoError(t, err)
	require.NoError(t, f.WriteCSV(fh))
	require.NoError(t, fh.Close())
}
