package testutil

import (
	"time"

	"cotcli/internal/frame"
)

// FirstReportDate is the Tuesday the synthetic histories start on.
var FirstReportDate = time.Date(2015, 1, 6, 0, 0, 0, 0, time.UTC)

// CanonicalRow holds one week of trader-group counts for a market.
type CanonicalRow struct {
	OpenInterest float64
	NCLong       float64
	NCShort      float64
	CommLong     float64
	CommShort    float64
	NRLong       float64
	NRShort      float64
}

// MarketFixture describes a synthetic market history.
type MarketFixture struct {
	Key          string
	ContractCode string
	Rows         []CanonicalRow
}

// CanonicalFrame builds a canonical table from fixtures, one weekly row per
// entry starting at FirstReportDate.
func CanonicalFrame(markets ...MarketFixture) *frame.Frame {
	var keys []frame.Key
	var codes []string
	cols := map[string][]float64{}
	names := []string{"open_interest_all", "nc_long", "nc_short", "comm_long", "comm_short", "nr_long", "nr_short"}

	for _, m := range markets {
		for w, r := range m.Rows {
			keys = append(keys, frame.NewKey(m.Key, FirstReportDate.AddDate(0, 0, 7*w)))
			codes = append(codes, m.ContractCode)
			vals := []float64{r.OpenInterest, r.NCLong, r.NCShort, r.CommLong, r.CommShort, r.NRLong, r.NRShort}
			for i, n := range names {
				cols[n] = append(cols[n], vals[i])
			}
		}
	}

	f := frame.New("canonical", keys)
	f.SetString("contract_code", codes)
	for _, n := range names {
		if cols[n] == nil {
			cols[n] = []float64{}
		}
		f.SetFloat(n, cols[n])
	}
	return f
}

// TrendingMarket generates a deterministic history of n weeks whose groups
// drift and oscillate so every window and label path gets exercised.
func TrendingMarket(key, code string, n int) MarketFixture {
	rows := make([]CanonicalRow, n)
	for i := range rows {
		x := float64(i)
		wave := float64((i*7)%23) - 11
		rows[i] = CanonicalRow{
			OpenInterest: 500000 + 900*x + 4000*wave,
			NCLong:       150000 + 300*x + 2500*wave,
			NCShort:      90000 + 120*x - 1800*wave,
			CommLong:     200000 + 200*x - 2200*wave,
			CommShort:    260000 + 380*x + 1900*wave,
			NRLong:       40000 + 10*x + 300*wave,
			NRShort:      38000 + 12*x - 250*wave,
		}
	}
	return MarketFixture{Key: key, ContractCode: code, Rows: rows}
}
