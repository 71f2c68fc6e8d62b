package cot

import (
	"fmt"
	"math"
	"strings"

	"cotcli/internal/frame"
)

const (
	maxRadarTags       = 4
	maxPositioningTags = 3
	tagSeparator       = " | "
)

var regimeTags = map[string]string{
	RegimeExpansionLate:  "OI: Expansion (Late)",
	RegimeExpansionEarly: "OI: Expansion (Early)",
	RegimeDistribution:   "OI: Distribution",
	RegimeRebuild:        "OI: Rebuild",
}

// latest is the one-row-per-market slice of the wide table, taken at each
// market's own latest report date.
type latest struct {
	src  *frame.Frame
	rows []int
}

func latestOf(wide *frame.Frame) latest {
	sorted := wide.SortByKey()
	return latest{src: sorted, rows: sorted.LatestRows()}
}

func (l latest) floats(name string) []float64 {
	src := l.src.FloatOrNaN(name)
	out := make([]float64, len(l.rows))
	for i, r := range l.rows {
		out[i] = src[r]
	}
	return out
}

func (l latest) labels(name string) []string {
	out := make([]string, len(l.rows))
	c, ok := l.src.Column(name)
	if !ok {
		for i := range out {
			out[i] = NotApply
		}
		return out
	}
	for i, r := range l.rows {
		out[i] = c.Cell(r)
	}
	return out
}

func (l latest) ints(name string) []int64 {
	out := make([]int64, len(l.rows))
	c, ok := l.src.Column(name)
	if !ok {
		return out
	}
	for i, r := range l.rows {
		switch c.Kind {
		case frame.Int:
			out[i] = c.Ints[r]
		case frame.Float:
			if v := c.Floats[r]; !math.IsNaN(v) {
				out[i] = int64(v)
			}
		}
	}
	return out
}

// view starts a view frame carrying market identity columns.
func (l latest) view(name string, catalog Catalog) *frame.Frame {
	keys := make([]frame.Key, len(l.rows))
	for i, r := range l.rows {
		keys[i] = l.src.Key(r)
	}
	out := frame.New(name, keys)
	ids := make([]string, len(keys))
	names := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.Market
		names[i] = catalog.DisplayName(k.Market)
	}
	out.SetString("market_id", ids)
	out.SetString("market_name", names)
	out.SetString("category", l.labels("category"))
	return out
}

func (l latest) copyFloats(out *frame.Frame, pairs ...[2]string) {
	for _, p := range pairs {
		out.SetFloat(p[0], l.floats(p[1]))
	}
}

func signWithEps(x float64) int {
	switch {
	case math.IsNaN(x), math.Abs(x) < signEps:
		return 0
	case x > 0:
		return 1
	}
	return -1
}

func opposed(fundsZ, commZ float64) bool {
	sf := signWithEps(fundsZ)
	return sf != 0 && signWithEps(commZ) == -sf
}

func fmtZ(z float64) string {
	return fmt.Sprintf("Z=%+.1f", z)
}

func joinTags(tags []string, limit int) string {
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return strings.Join(tags, tagSeparator)
}

func riskTag(level string) string {
	switch level {
	case LevelHigh:
		return "OI Risk: High"
	case LevelElevated:
		return "OI Risk: Elevated"
	}
	return ""
}

func appendNonEmpty(tags []string, tag string) []string {
	if tag == "" {
		return tags
	}
	return append(tags, tag)
}

// BuildRadar builds the hotness view: one row per market with the latest
// signal, conflict and open-interest state, an is_hot flag, an additive
// hot_score and up to four prioritized why-tags.
func BuildRadar(wide *frame.Frame, catalog Catalog) (*frame.Frame, error) {
	if err := requireColumns(wide, "cot_traffic_signal", "conflict_level", "oi_regime",
		"oi_z_52w", "oi_risk_level", "net_z_52w_funds"); err != nil {
		return nil, err
	}
	l := latestOf(wide)
	out := l.view(TableRadar, catalog)

	signal := l.ints("cot_traffic_signal")
	conflict := l.labels("conflict_level")
	regime := l.labels("oi_regime")
	risk := l.labels("oi_risk_level")
	oiZ := l.floats("oi_z_52w")
	fundsZ := l.floats("net_z_52w_funds")
	commZ := l.floats("net_z_52w_commercials")

	out.SetInt("cot_traffic_signal", signal)
	out.SetString("conflict_level", conflict)
	out.SetString("oi_regime", regime)
	out.SetFloat("oi_z_52w", oiZ)
	out.SetString("oi_risk_level", risk)
	out.SetFloat("net_z_52w_funds", fundsZ)
	l.copyFloats(out,
		[2]string{"funds_net", "nc_net"},
		[2]string{"funds_net_delta_1w", "nc_net_chg_1w"},
		[2]string{"funds_pct_oi_change", "nc_flow_pct_oi_1w"},
		[2]string{"funds_net_z_52w", "net_z_52w_funds"},
		[2]string{"comm_net", "comm_net"},
		[2]string{"comm_net_delta_1w", "comm_net_chg_1w"},
		[2]string{"comm_pct_oi_change", "comm_flow_pct_oi_1w"},
		[2]string{"comm_net_z_52w", "net_z_52w_commercials"},
		[2]string{"small_net", "nr_net"},
		[2]string{"small_net_delta_1w", "nr_net_chg_1w"},
		[2]string{"small_pct_oi_change", "nr_flow_pct_oi_1w"},
		[2]string{"open_interest", "open_interest"},
		[2]string{"open_interest_chg_1w", "open_interest_chg_1w"},
		[2]string{"open_interest_chg_1w_pct", "open_interest_chg_1w_pct"},
	)

	n := out.Len()
	crowded := make([]bool, n)
	opposition := make([]bool, n)
	confirmed := make([]bool, n)
	hot := make([]bool, n)
	score := make([]float64, n)
	why := make([]string, n)
	for i := 0; i < n; i++ {
		absSignal := math.Abs(float64(signal[i]))
		oiStretched := math.Abs(oiZ[i]) >= ZCrowded
		fundsStretched := math.Abs(fundsZ[i]) >= ZCrowded
		elevated := risk[i] == LevelElevated || risk[i] == LevelHigh

		crowded[i] = fundsStretched
		opposition[i] = opposed(fundsZ[i], commZ[i])
		confirmed[i] = crowded[i] && opposition[i]
		hot[i] = absSignal >= 1 || conflict[i] == LevelHigh || elevated || oiStretched || fundsStretched

		s := 2 * absSignal
		if conflict[i] == LevelHigh {
			s += 2
		}
		switch risk[i] {
		case LevelHigh:
			s++
		case LevelElevated:
			s += 0.5
		}
		if oiStretched {
			s++
		}
		if fundsStretched {
			s++
		}
		score[i] = s
		why[i] = radarTags(conflict[i], fundsZ[i], regime[i], risk[i], oiZ[i])
	}
	out.SetBool("funds_crowded", crowded)
	out.SetBool("commercial_opposition", opposition)
	out.SetBool("confirmed_imbalance", confirmed)
	out.SetBool("is_hot", hot)
	out.SetFloat("hot_score", score)
	out.SetString("why_tags", why)
	return out, nil
}

func radarTags(conflict string, fundsZ float64, regime, risk string, oiZ float64) string {
	var tags []string
	if conflict == LevelHigh {
		tags = append(tags, "High Conflict")
	}
	switch {
	case math.Abs(fundsZ) >= ZExtreme:
		tags = append(tags, fmt.Sprintf("Funds Extreme (%s)", fmtZ(fundsZ)))
	case math.Abs(fundsZ) >= ZCrowded:
		tags = append(tags, fmt.Sprintf("Funds Crowded (%s)", fmtZ(fundsZ)))
	}
	tags = appendNonEmpty(tags, regimeTags[regime])
	tags = appendNonEmpty(tags, riskTag(risk))
	switch {
	case math.Abs(oiZ) >= ZExtreme:
		tags = append(tags, fmt.Sprintf("OI Extreme (%s)", fmtZ(oiZ)))
	case math.Abs(oiZ) >= ZCrowded:
		tags = append(tags, fmt.Sprintf("OI Stretched (%s)", fmtZ(oiZ)))
	}
	return joinTags(tags, maxRadarTags)
}

// BuildPositioning builds the positioning view: one row per market with
// each group's net position, weekly change as a share of prior open
// interest, z-scores and up to three why-tags.
func BuildPositioning(wide *frame.Frame, catalog Catalog) (*frame.Frame, error) {
	if err := requireColumns(wide, "cot_traffic_signal", "conflict_level", "oi_regime",
		"oi_risk_level", "open_interest", "open_interest_chg_1w"); err != nil {
		return nil, err
	}
	l := latestOf(wide)
	out := l.view(TablePositioning, catalog)

	conflict := l.labels("conflict_level")
	regime := l.labels("oi_regime")
	risk := l.labels("oi_risk_level")
	fundsZ := l.floats("net_z_52w_funds")
	commZ := l.floats("net_z_52w_commercials")
	oi := l.floats("open_interest")
	oiChg := l.floats("open_interest_chg_1w")

	out.SetInt("cot_traffic_signal", l.ints("cot_traffic_signal"))
	out.SetString("conflict_level", conflict)
	out.SetString("oi_regime", regime)
	out.SetString("oi_risk_level", risk)
	out.SetFloat("open_interest", oi)
	out.SetFloat("open_interest_chg_1w", oiChg)
	out.SetFloat("open_interest_chg_1w_pct", l.floats("open_interest_chg_1w_pct"))

	prev := make([]float64, len(oi))
	for i := range oi {
		prev[i] = oi[i] - oiChg[i]
	}
	shareOfPrev := func(chg []float64) []float64 {
		res := make([]float64, len(chg))
		for i := range chg {
			res[i] = math.NaN()
			if !math.IsNaN(prev[i]) && prev[i] != 0 {
				res[i] = chg[i] / prev[i]
			}
		}
		return res
	}

	for _, g := range []struct{ prefix, group string }{
		{"funds", GroupFunds}, {"comm", GroupCommercials}, {"small", GroupSmall},
	} {
		chg := l.floats(col(g.group, "net_chg_1w"))
		out.SetFloat(g.prefix+"_net", l.floats(col(g.group, "net")))
		out.SetFloat(g.prefix+"_net_chg_1w", chg)
		out.SetFloat(g.prefix+"_pct_oi_chg_1w", shareOfPrev(chg))
		switch g.group {
		case GroupFunds:
			out.SetFloat("funds_z_52w", fundsZ)
		case GroupCommercials:
			out.SetFloat("comm_z_52w", commZ)
		}
	}

	why := make([]string, out.Len())
	for i := range why {
		why[i] = positioningTags(conflict[i], fundsZ[i], commZ[i], regime[i], risk[i])
	}
	out.SetString("why_tags", why)
	return out, nil
}

func positioningTags(conflict string, fundsZ, commZ float64, regime, risk string) string {
	var tags []string
	if conflict == LevelHigh {
		tags = append(tags, "High conflict")
	}
	if !math.IsNaN(fundsZ) && !math.IsNaN(commZ) && opposed(fundsZ, commZ) {
		tags = append(tags, "Commercials opposite")
	}
	if math.Abs(fundsZ) >= ZCrowded {
		tags = append(tags, fmt.Sprintf("Funds crowded (%s)", fmtZ(fundsZ)))
	}
	if regime == RegimeExpansionEarly || regime == RegimeExpansionLate {
		tags = append(tags, regimeTags[regime])
	}
	tags = appendNonEmpty(tags, riskTag(risk))
	return joinTags(tags, maxPositioningTags)
}
