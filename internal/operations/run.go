package operations

import (
	"log/slog"

	"cotcli/internal/canonical"
	"cotcli/internal/config"
	"cotcli/internal/cot"
	"cotcli/internal/frame"
	"cotcli/internal/validation"
)

// Run is the mutable state of one compute pass. Steps read what earlier
// steps stored and add their own result.
type Run struct {
	ID         string
	Paths      *config.Paths
	Thresholds validation.Thresholds
	Logger     *slog.Logger

	Markets   *config.Markets
	Catalog   cot.Catalog
	Canonical *frame.Frame
	Filter    canonical.FilterStats

	Stages      cot.StageTables
	Metrics     *frame.Frame
	Radar       *frame.Frame
	Positioning *frame.Frame

	Report validation.Report
}

// Tables returns the tables to publish: the stage tables, the two views,
// and the wide metrics table last so readers watching it see a complete
// snapshot.
func (r *Run) Tables() []*frame.Frame {
	return []*frame.Frame{
		r.Stages.Positions,
		r.Stages.Changes,
		r.Stages.Flows,
		r.Stages.Rolling,
		r.Stages.Extremes,
		r.Stages.Moves,
		r.Radar,
		r.Positioning,
		r.Metrics,
	}
}
