package cot

import (
	"fmt"
	"math"

	apperrors "cotcli/internal/errors"
	"cotcli/internal/frame"
)

// MarketMeta is the configured identity of a market.
type MarketMeta struct {
	Key          string
	ContractCode string
	Category     string
	DisplayName  string
}

// Catalog maps market_key to its configuration.
type Catalog map[string]MarketMeta

// DisplayName returns the configured display name, falling back to the key.
func (c Catalog) DisplayName(key string) string {
	if m, ok := c[key]; ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return key
}

// StageTables are the six per-stage tables joined into the wide table.
type StageTables struct {
	Positions *frame.Frame
	Changes   *frame.Frame
	Flows     *frame.Frame
	Rolling   *frame.Frame
	Extremes  *frame.Frame
	Moves     *frame.Frame
}

func (t StageTables) all() []*frame.Frame {
	return []*frame.Frame{t.Positions, t.Changes, t.Flows, t.Rolling, t.Extremes, t.Moves}
}

// BuildWideMetrics joins the stage tables one-to-one onto positions,
// attaches open interest and market metadata, and derives the second-order
// analytics: open-interest regime, shared-scale comparisons, z-scores,
// classification labels, conflict, traffic signal and consensus.
func BuildWideMetrics(tables StageTables, canonical *frame.Frame, catalog Catalog) (*frame.Frame, error) {
	for _, t := range tables.all() {
		if t == nil {
			return nil, apperrors.NewIntegrityError("stage table missing before join", nil)
		}
		if err := requireRows(t); err != nil {
			return nil, err
		}
	}
	if err := requireColumns(canonical, "open_interest_all"); err != nil {
		return nil, err
	}

	wide, err := frame.LeftJoin(TableMetrics, tables.Positions,
		tables.Changes, tables.Flows, tables.Rolling, tables.Extremes, tables.Moves)
	if err != nil {
		return nil, apperrors.NewIntegrityError("join stage tables", err)
	}

	attachMetadata(wide, catalog)
	attachOpenInterest(wide, canonical)

	addOpenInterestMetrics(wide)
	addSpreadAndShareOfOI(wide)
	addChangeHeatline(wide)
	addSharedScale(wide)
	addAdvancedOpenInterest(wide)
	addSignals(wide)
	addTrafficLights(wide)

	if wide.Len() != tables.Positions.Len() {
		return nil, apperrors.NewIntegrityError(
			fmt.Sprintf("wide table has %d rows, positions has %d", wide.Len(), tables.Positions.Len()),
			frame.ErrRowCount)
	}
	if err := frame.CheckUnique(wide); err != nil {
		return nil, apperrors.NewIntegrityError("wide table keys", err)
	}
	return wide, nil
}

func attachMetadata(wide *frame.Frame, catalog Catalog) {
	n := wide.Len()
	category := make([]string, n)
	code := make([]string, n)
	for i, k := range wide.Keys() {
		m := catalog[k.Market]
		category[i] = m.Category
		code[i] = m.ContractCode
	}
	wide.SetString("category", category)
	wide.SetString("contract_code", code)
}

// attachOpenInterest copies open_interest_all from the canonical table,
// taking the first value when a key repeats.
func attachOpenInterest(wide, canonical *frame.Frame) {
	src := canonical.MustFloat("open_interest_all")
	first := make(map[frame.Key]float64, canonical.Len())
	for i, k := range canonical.Keys() {
		if _, ok := first[k]; !ok {
			first[k] = src[i]
		}
	}
	oi := make([]float64, wide.Len())
	for i, k := range wide.Keys() {
		v, ok := first[k]
		if !ok {
			v = math.NaN()
		}
		oi[i] = v
	}
	wide.SetFloat("open_interest", oi)
}
