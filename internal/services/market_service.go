package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"cotcli/internal/config"
	apperrors "cotcli/internal/errors"
	"cotcli/internal/frame"
)

// MarketInfo describes a configured market.
type MarketInfo struct {
	Key              string `json:"market_key"`
	ContractCode     string `json:"contract_code"`
	Category         string `json:"category,omitempty"`
	DisplayName      string `json:"display_name"`
	LatestReportDate string `json:"latest_report_date,omitempty"`
	Weeks            int    `json:"weeks"`
}

// RadarQuery filters the radar view.
type RadarQuery struct {
	HotOnly  bool
	Category string
	// Limit caps the result; zero means no cap.
	Limit int
}

// MetricsQuery selects a slice of one market's history. Zero dates are
// open bounds.
type MetricsQuery struct {
	From    time.Time
	To      time.Time
	Columns []string
}

// MarketService answers queries against the current snapshot.
type MarketService struct {
	store   *SnapshotStore
	markets *config.Markets
	logger  *slog.Logger
}

// NewMarketService creates a market service.
func NewMarketService(store *SnapshotStore, markets *config.Markets, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		store:   store,
		markets: markets,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

func (s *MarketService) snapshot() (*Snapshot, error) {
	snap := s.store.Current()
	if snap == nil {
		return nil, apperrors.ErrSnapshotMissing
	}
	return snap, nil
}

// Markets lists the configured markets in configuration order, with the
// latest report date when a snapshot is loaded.
func (s *MarketService) Markets(ctx context.Context) []MarketInfo {
	latest := map[string]time.Time{}
	weeks := map[string]int{}
	if snap := s.store.Current(); snap != nil {
		for _, seg := range snap.Metrics.Segments() {
			weeks[seg.Market] += seg.End - seg.Start
			for i := seg.Start; i < seg.End; i++ {
				if d := snap.Metrics.Key(i).Date; d.After(latest[seg.Market]) {
					latest[seg.Market] = d
				}
			}
		}
	}

	catalog := s.markets.Catalog()
	out := make([]MarketInfo, 0, len(s.markets.Markets))
	for _, m := range s.markets.Markets {
		meta := catalog[m.Key]
		info := MarketInfo{
			Key:          meta.Key,
			ContractCode: meta.ContractCode,
			Category:     meta.Category,
			DisplayName:  meta.DisplayName,
			Weeks:        weeks[m.Key],
		}
		if d, ok := latest[m.Key]; ok {
			info.LatestReportDate = d.Format(frame.DateLayout)
		}
		out = append(out, info)
	}
	return out
}

// Radar returns radar rows sorted by hot_score descending. Rows without a
// score sort last; ties keep market order.
func (s *MarketService) Radar(ctx context.Context, q RadarQuery) ([]Row, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	f := snap.Radar

	rows := filterRows(f, func(i int) bool {
		if q.HotOnly && cell(f, "is_hot", i) != "true" {
			return false
		}
		return matchCategory(f, i, q.Category)
	})

	score := f.FloatOrNaN("hot_score")
	sort.SliceStable(rows, func(a, b int) bool {
		sa, sb := score[rows[a]], score[rows[b]]
		switch {
		case math.IsNaN(sb):
			return !math.IsNaN(sa)
		case math.IsNaN(sa):
			return false
		default:
			return sa > sb
		}
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rowsOf(f, rows, nil), nil
}

// Positioning returns positioning rows in market order.
func (s *MarketService) Positioning(ctx context.Context, category string) ([]Row, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	f := snap.Positioning
	rows := filterRows(f, func(i int) bool { return matchCategory(f, i, category) })
	return rowsOf(f, rows, nil), nil
}

// MarketMetrics returns one market's wide rows within the date range, in
// date order. Unknown markets and columns are rejected.
func (s *MarketService) MarketMetrics(ctx context.Context, key string, q MetricsQuery) ([]Row, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return nil, apperrors.ErrValidation("from", "from must not be after to")
	}

	f := snap.Metrics
	for _, c := range q.Columns {
		if !f.Has(c) {
			return nil, apperrors.ErrValidation("columns", fmt.Sprintf("unknown column %q", c))
		}
	}

	known := false
	rows := filterRows(f, func(i int) bool {
		k := f.Key(i)
		if k.Market != key {
			return false
		}
		known = true
		if !q.From.IsZero() && k.Date.Before(q.From) {
			return false
		}
		return q.To.IsZero() || !k.Date.After(q.To)
	})
	if !known {
		if _, ok := s.markets.Catalog()[key]; !ok {
			return nil, apperrors.NotFoundError(fmt.Sprintf("market %s", key))
		}
	}

	s.logger.DebugContext(ctx, "market metrics query",
		slog.String("market_key", key),
		slog.Int("rows", len(rows)),
		slog.Int("columns", len(q.Columns)))
	return rowsOf(f, rows, q.Columns), nil
}

func filterRows(f *frame.Frame, keep func(i int) bool) []int {
	rows := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return rows
}

func matchCategory(f *frame.Frame, i int, category string) bool {
	return category == "" || strings.EqualFold(cell(f, "category", i), category)
}
