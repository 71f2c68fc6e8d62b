package validation

import (
	"math"
	"sort"
	"strings"

	"cotcli/internal/cot"
	"cotcli/internal/frame"
)

const (
	// mappingBugShare is the largest tolerated share of rows on which funds
	// and commercials carry identical long, short and net values.
	mappingBugShare = 0.999
	chgTolerance    = 1e-6
	weekDays        = 7
)

// Thresholds are the |open_interest_chg_1w_pct| levels that raise INFO and
// WARN findings.
type Thresholds struct {
	OIChangeInfo float64
	OIChangeWarn float64
}

// oiBoundedColumns must lie in [0,1] where defined.
var oiBoundedColumns = []string{
	"open_interest_pos_all", "open_interest_pos_5y",
	"open_interest_pct_all", "open_interest_pct_5y",
	"open_interest_chg_pct_rank_all", "open_interest_chg_pct_rank_5y",
}

func column(r *Report, f *frame.Frame, name string) ([]float64, bool) {
	xs, ok := f.Float(name)
	if !ok {
		r.Errorf("%s is missing required column %s", f.Name(), name)
	}
	return xs, ok
}

func outside01(v float64) bool { return v < 0 || v > 1 }

// CheckCanonical warns about negative open interest in the filtered input.
func CheckCanonical(r *Report, canonical *frame.Frame) {
	oi, ok := canonical.Float("open_interest_all")
	if !ok {
		return
	}
	n := 0
	for _, v := range oi {
		if v < 0 {
			n++
		}
	}
	if n > 0 {
		r.Warnf("canonical has %d rows with negative open_interest_all", n)
	}
}

// CheckPositions warns about gaps in each market's weekly history.
func CheckPositions(r *Report, positions *frame.Frame) {
	keys := positions.Keys()
	for _, s := range positions.Segments() {
		missing := 0
		var firstGap string
		for i := s.Start + 1; i < s.End; i++ {
			days := int(math.Round(keys[i].Date.Sub(keys[i-1].Date).Hours() / 24))
			if days > weekDays {
				if firstGap == "" {
					firstGap = keys[i-1].Date.Format(frame.DateLayout)
				}
				missing += days/weekDays - 1
			}
		}
		if missing > 0 {
			r.Warnf("market %s has %d missing weeks (first gap after %s)", s.Market, missing, firstGap)
		}
	}
}

// CheckMetrics runs the post-join checks on the wide table. positions is the
// table the join was based on.
func CheckMetrics(r *Report, metrics, positions *frame.Frame, th Thresholds) {
	if metrics.Len() == 0 {
		r.Errorf("%s has 0 rows", metrics.Name())
		return
	}
	if dups := metrics.DuplicateKeys(); len(dups) > 0 {
		r.Warnf("%s has %d duplicate (market_key, report_date) keys, first %s", metrics.Name(), len(dups), dups[0])
	}
	if metrics.Len() != positions.Len() {
		r.Errorf("%s row count (%d) != %s row count (%d), expected a 1:1 join",
			metrics.Name(), metrics.Len(), positions.Name(), positions.Len())
	}

	for _, c := range []string{"nc_net", "comm_net", "open_interest"} {
		column(r, metrics, c)
	}

	checkExtremes(r, metrics)
	checkChanges(r, metrics)
	checkBounded(r, metrics, oiBoundedColumns)
	moves := make([]string, 0, 2*len(cot.PositionColumns()))
	for _, c := range cot.PositionColumns() {
		moves = append(moves, c+"_move_pct_all", c+"_move_pct_5y")
	}
	checkBounded(r, metrics, moves)

	checkOpenInterestGaps(r, metrics)
	checkOpenInterestChange(r, metrics, th)
	checkMappingBug(r, metrics)
}

func checkExtremes(r *Report, f *frame.Frame) {
	for _, c := range cot.PositionColumns() {
		if pos, ok := column(r, f, c+"_pos_all"); ok {
			nan, bad := 0, 0
			for _, v := range pos {
				switch {
				case math.IsNaN(v):
					nan++
				case outside01(v):
					bad++
				}
			}
			if nan > 0 {
				r.Errorf("%s_pos_all has %d NaN values", c, nan)
			}
			if bad > 0 {
				r.Errorf("%s_pos_all has %d values outside [0,1]", c, bad)
			}
		}
		checkBounded(r, f, []string{c + "_pos_5y"})

		for _, scope := range cot.Scopes {
			lo, okLo := column(r, f, c+"_min_"+scope)
			hi, okHi := column(r, f, c+"_max_"+scope)
			if !okLo || !okHi {
				continue
			}
			bad := 0
			for i := range lo {
				if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) {
					if scope == cot.ScopeAll {
						bad++
					}
					continue
				}
				if hi[i] < lo[i] {
					bad++
				}
			}
			if bad > 0 {
				r.Errorf("%s_max_%s < %s_min_%s (or undefined) on %d rows", c, scope, c, scope, bad)
			}
		}
	}
}

func checkBounded(r *Report, f *frame.Frame, names []string) {
	for _, name := range names {
		xs, ok := column(r, f, name)
		if !ok {
			continue
		}
		bad := 0
		for _, v := range xs {
			if !math.IsNaN(v) && outside01(v) {
				bad++
			}
		}
		if bad > 0 {
			r.Errorf("%s has %d values outside [0,1]", name, bad)
		}
	}
}

// checkChanges verifies that each market's first week has no change and
// that net changes equal long minus short changes.
func checkChanges(r *Report, f *frame.Frame) {
	segments := f.Segments()
	for _, g := range cot.Groups {
		for _, m := range cot.Metrics {
			chg, ok := column(r, f, g+"_"+m+"_chg_1w")
			if !ok {
				continue
			}
			defined := 0
			for _, s := range segments {
				if !math.IsNaN(chg[s.Start]) {
					defined++
				}
			}
			if defined > 0 {
				r.Errorf("%s_%s_chg_1w is defined on the first week of %d markets", g, m, defined)
			}
		}

		long, okL := f.Float(g + "_long_chg_1w")
		short, okS := f.Float(g + "_short_chg_1w")
		net, okN := f.Float(g + "_net_chg_1w")
		if !okL || !okS || !okN {
			continue
		}
		bad := 0
		for i := range net {
			want := long[i] - short[i]
			if math.IsNaN(want) || math.IsNaN(net[i]) {
				if math.IsNaN(want) != math.IsNaN(net[i]) {
					bad++
				}
				continue
			}
			if math.Abs(net[i]-want) > chgTolerance*math.Max(1, math.Abs(want)) {
				bad++
			}
		}
		if bad > 0 {
			r.Errorf("%s_net_chg_1w != %s_long_chg_1w - %s_short_chg_1w on %d rows", g, g, g, bad)
		}
	}
}

// checkOpenInterestGaps warns when open interest is missing between a
// market's first and last reported value.
func checkOpenInterestGaps(r *Report, f *frame.Frame) {
	oi, ok := f.Float("open_interest")
	if !ok {
		return
	}
	for _, s := range f.Segments() {
		first, last := -1, -1
		for i := s.Start; i < s.End; i++ {
			if !math.IsNaN(oi[i]) {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		gaps := 0
		for i := first + 1; first >= 0 && i < last; i++ {
			if math.IsNaN(oi[i]) {
				gaps++
			}
		}
		if gaps > 0 {
			r.Warnf("market %s has %d weeks with open_interest missing mid-history", s.Market, gaps)
		}
	}
}

func checkOpenInterestChange(r *Report, f *frame.Frame, th Thresholds) {
	pct, ok := column(r, f, "open_interest_chg_1w_pct")
	if !ok {
		return
	}
	count := func(limit float64) (int, int, []string) {
		n, total := 0, 0
		markets := map[string]bool{}
		for i, v := range pct {
			if math.IsNaN(v) {
				continue
			}
			total++
			if math.Abs(v) > limit {
				n++
				markets[f.Key(i).Market] = true
			}
		}
		names := make([]string, 0, len(markets))
		for m := range markets {
			names = append(names, m)
		}
		sort.Strings(names)
		return n, total, names
	}

	if n, total, markets := count(th.OIChangeInfo); n > 0 {
		r.Infof("open_interest_chg_1w_pct exceeds %.2f on %d of %d weeks (%.2f%%) in %s",
			th.OIChangeInfo, n, total, 100*float64(n)/float64(total), strings.Join(markets, ", "))
	}
	if n, total, markets := count(th.OIChangeWarn); n > 0 {
		r.Warnf("open_interest_chg_1w_pct exceeds %.2f on %d of %d weeks (%.2f%%) in %s",
			th.OIChangeWarn, n, total, 100*float64(n)/float64(total), strings.Join(markets, ", "))
	}
}

// checkMappingBug fails when funds and commercials look like the same
// trader group, which means the canonical column mapping is broken.
func checkMappingBug(r *Report, f *frame.Frame) {
	cols := []string{"nc_long", "comm_long", "nc_short", "comm_short", "nc_net", "comm_net"}
	if len(f.Missing(cols...)) > 0 {
		return
	}
	ncL, cL := f.MustFloat("nc_long"), f.MustFloat("comm_long")
	ncS, cS := f.MustFloat("nc_short"), f.MustFloat("comm_short")
	ncN, cN := f.MustFloat("nc_net"), f.MustFloat("comm_net")
	same := 0
	for i := range ncL {
		// NaN never compares equal
		if ncL[i] == cL[i] && ncS[i] == cS[i] && ncN[i] == cN[i] {
			same++
		}
	}
	share := float64(same) / float64(f.Len())
	if share > mappingBugShare {
		r.Errorf("comm_* equals nc_* on %.1f%% of rows (mapping bug); funds and commercials must be different trader groups",
			share*100)
	}
}
