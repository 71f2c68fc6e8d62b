package operations

import (
	"context"
	"log/slog"

	"cotcli/internal/canonical"
	"cotcli/internal/config"
	"cotcli/internal/cot"
	"cotcli/internal/frame"
	"cotcli/internal/validation"
)

// Step IDs in execution order.
const (
	StepLoadInputs  = "load_inputs"
	StepPositions   = "positions"
	StepChanges     = "changes"
	StepFlows       = "flows"
	StepRolling     = "rolling"
	StepExtremes    = "extremes"
	StepMoves       = "moves"
	StepMetrics     = "metrics"
	StepRadar       = "radar"
	StepPositioning = "positioning"
)

// DefaultSteps returns the compute steps in the order they must run.
func DefaultSteps() []Step {
	return []Step{
		NewStep(StepLoadInputs, "Load inputs", loadInputs),
		NewStep(StepPositions, "Positions", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildPositions(run.Canonical)
			if err != nil {
				return nil, err
			}
			run.Stages.Positions = f
			validation.CheckPositions(&run.Report, f)
			return f, nil
		}),
		NewStep(StepChanges, "Changes", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildChanges(run.Stages.Positions)
			run.Stages.Changes = f
			return f, err
		}),
		NewStep(StepFlows, "Flows", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildFlows(run.Stages.Changes)
			run.Stages.Flows = f
			return f, err
		}),
		NewStep(StepRolling, "Rolling", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildRolling(run.Stages.Positions)
			run.Stages.Rolling = f
			return f, err
		}),
		NewStep(StepExtremes, "Extremes", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildExtremes(run.Stages.Positions)
			run.Stages.Extremes = f
			return f, err
		}),
		NewStep(StepMoves, "Moves", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildMoves(run.Stages.Changes)
			run.Stages.Moves = f
			return f, err
		}),
		NewStep(StepMetrics, "Wide metrics", buildMetrics),
		NewStep(StepRadar, "Market radar", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildRadar(run.Metrics, run.Catalog)
			run.Radar = f
			return f, err
		}),
		NewStep(StepPositioning, "Market positioning", func(_ context.Context, run *Run) (*frame.Frame, error) {
			f, err := cot.BuildPositioning(run.Metrics, run.Catalog)
			run.Positioning = f
			return f, err
		}),
	}
}

func loadInputs(_ context.Context, run *Run) (*frame.Frame, error) {
	fv := validation.NewFileValidator(run.Logger)
	if err := fv.ValidateInputFile(run.Paths.Markets, ".yaml", ".yml"); err != nil {
		return nil, err
	}
	if err := fv.ValidateInputFile(run.Paths.Canonical, ".csv"); err != nil {
		return nil, err
	}

	markets, err := config.LoadMarkets(run.Paths.Markets)
	if err != nil {
		return nil, err
	}
	run.Markets = markets
	run.Catalog = markets.Catalog()

	raw, err := canonical.Load(run.Paths.Canonical)
	if err != nil {
		return nil, err
	}
	filtered, stats, err := canonical.Filter(raw, run.Catalog)
	if err != nil {
		return nil, err
	}
	run.Canonical = filtered
	run.Filter = stats

	run.Logger.Info("inputs loaded",
		slog.Int("markets", len(markets.Markets)),
		slog.Int("rows_before", stats.Before),
		slog.Int("rows_after", stats.After))

	validation.CheckCanonical(&run.Report, filtered)
	return filtered, nil
}

// buildMetrics joins the stage tables and runs the post-compute checks.
// Fatal findings fail the step so nothing is published.
func buildMetrics(_ context.Context, run *Run) (*frame.Frame, error) {
	wide, err := cot.BuildWideMetrics(run.Stages, run.Canonical, run.Catalog)
	if err != nil {
		return nil, err
	}
	validation.CheckMetrics(&run.Report, wide, run.Stages.Positions, run.Thresholds)
	if err := run.Report.Err(); err != nil {
		return nil, err
	}
	run.Metrics = wide
	return wide, nil
}
