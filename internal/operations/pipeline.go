package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cotcli/internal/config"
	"cotcli/internal/cot"
	apperrors "cotcli/internal/errors"
	"cotcli/internal/exporter"
	"cotcli/internal/infrastructure"
	"cotcli/internal/validation"
)

// ErrOutputsExist is returned when a previous snapshot is present and the
// caller did not ask to overwrite it.
var ErrOutputsExist = errors.New("compute outputs already exist; rerun with -yes to overwrite")

// OutputTables lists the published table names.
var OutputTables = []string{
	cot.TablePositions,
	cot.TableChanges,
	cot.TableFlows,
	cot.TableRolling,
	cot.TableExtremes,
	cot.TableMoves,
	cot.TableRadar,
	cot.TablePositioning,
	cot.TableMetrics,
}

// Options control a single run.
type Options struct {
	// Overwrite allows replacing an existing snapshot.
	Overwrite bool
	// Workbook also exports the radar and positioning views as xlsx.
	Workbook bool
}

// Pipeline executes the compute steps and publishes their tables.
type Pipeline struct {
	paths      *config.Paths
	thresholds validation.Thresholds
	logger     *slog.Logger
	registry   *Registry
	tracer     *RunTracer
}

// NewPipeline creates a pipeline with the default steps registered.
func NewPipeline(paths *config.Paths, compute config.ComputeConfig, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Pipeline, error) {
	if paths == nil {
		return nil, fmt.Errorf("paths are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	tracer, err := NewRunTracer(providers)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	for _, step := range DefaultSteps() {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		paths: paths,
		thresholds: validation.Thresholds{
			OIChangeInfo: compute.OIChangeInfo,
			OIChangeWarn: compute.OIChangeWarn,
		},
		logger:   logger.With(slog.String("component", "pipeline")),
		registry: registry,
		tracer:   tracer,
	}, nil
}

// Registry exposes the pipeline's steps.
func (p *Pipeline) Registry() *Registry { return p.registry }

// OutputsExist reports whether any published file is already present.
func (p *Pipeline) OutputsExist() bool {
	if config.FileExists(p.paths.Manifest) {
		return true
	}
	for _, name := range OutputTables {
		if config.FileExists(p.paths.TablePath(name)) {
			return true
		}
	}
	return false
}

// Run executes one compute pass. The QA report is written whether or not
// the run succeeds; tables and the manifest are published only on success.
// The returned manifest is never nil.
func (p *Pipeline) Run(ctx context.Context, opts Options) (manifest *Manifest, err error) {
	runID := infrastructure.NewRunID()
	ctx = infrastructure.WithRunID(ctx, runID)
	logger := p.logger.With(slog.String("run_id", runID))

	manifest = &Manifest{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Inputs: ManifestInputs{
			Canonical: p.paths.Canonical,
			Markets:   p.paths.Markets,
		},
	}

	ctx, span := p.tracer.TraceRun(ctx, runID)
	defer func() {
		if err != nil || manifest.FinishedAt.IsZero() {
			manifest.finish(err)
		}
		p.tracer.RecordRun(ctx, span, manifest, err)
		if err != nil {
			logger.Error("compute run failed",
				slog.String("error", err.Error()),
				slog.String("error_type", errorType(err)),
				slog.Int64("duration_ms", manifest.DurationMS))
			return
		}
		logger.Info("compute run completed",
			slog.Int("outputs", len(manifest.Outputs)),
			slog.Int("qa_warnings", manifest.QA.Warnings),
			slog.Int64("duration_ms", manifest.DurationMS))
	}()

	if err := p.paths.EnsureDirectories(); err != nil {
		return manifest, err
	}
	if err := validation.NewFileValidator(logger).ValidateOutputDirectory(p.paths.ComputeDir); err != nil {
		return manifest, err
	}
	if !opts.Overwrite && p.OutputsExist() {
		return manifest, ErrOutputsExist
	}

	lock, err := AcquireLock(p.paths.LockFile, runID)
	if err != nil {
		return manifest, err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			logger.Warn("failed to release lock", slog.String("error", rerr.Error()))
		}
	}()

	logger.Info("compute run started",
		slog.String("canonical", p.paths.Canonical),
		slog.String("markets", p.paths.Markets),
		slog.String("compute_dir", p.paths.ComputeDir))

	run := &Run{
		ID:         runID,
		Paths:      p.paths,
		Thresholds: p.thresholds,
		Logger:     logger,
	}
	stepErr := p.execute(ctx, run, manifest)

	manifest.QA = summarize(&run.Report)
	run.Report.Log(logger)
	if werr := run.Report.WriteFile(p.paths.QAReport); werr != nil {
		if stepErr == nil {
			return manifest, werr
		}
		logger.Error("failed to write qa report", slog.String("error", werr.Error()))
	}
	if stepErr != nil {
		return manifest, stepErr
	}

	if err := p.publish(ctx, run, manifest, opts); err != nil {
		return manifest, err
	}
	return manifest, nil
}

// execute runs every registered step in order and records each one in the
// manifest. Steps after a failure are recorded as skipped.
func (p *Pipeline) execute(ctx context.Context, run *Run, manifest *Manifest) error {
	steps := p.registry.Steps()
	skipFrom := func(i int) {
		for _, s := range steps[i:] {
			manifest.Stages = append(manifest.Stages, StageExecution{
				ID:     s.ID(),
				Name:   s.Name(),
				Status: StepStatusSkipped,
			})
		}
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			skipFrom(i)
			return fmt.Errorf("run cancelled before %s: %w", step.ID(), err)
		}

		stepCtx, span := p.tracer.TraceStep(ctx, run.ID, step)
		start := time.Now()
		f, err := step.Execute(stepCtx, run)
		duration := time.Since(start)

		rows := 0
		if f != nil && err == nil {
			rows = f.Len()
		}
		p.tracer.RecordStep(stepCtx, span, step, rows, duration, err)

		exec := StageExecution{
			ID:         step.ID(),
			Name:       step.Name(),
			Status:     StepStatusCompleted,
			Rows:       rows,
			DurationMS: duration.Milliseconds(),
		}
		if err != nil {
			exec.Status = StepStatusFailed
			exec.Error = err.Error()
			manifest.Stages = append(manifest.Stages, exec)
			skipFrom(i + 1)
			return fmt.Errorf("step %s failed: %w", step.ID(), err)
		}
		manifest.Stages = append(manifest.Stages, exec)

		run.Logger.Info("step completed",
			slog.String("step", step.ID()),
			slog.Int("rows", rows),
			slog.Int64("duration_ms", exec.DurationMS))
	}

	manifest.Inputs.MarketCount = len(run.Catalog)
	manifest.Inputs.RowsBefore = run.Filter.Before
	manifest.Inputs.RowsAfter = run.Filter.After
	return nil
}

// publish stages every output, then moves them into the compute directory.
func (p *Pipeline) publish(ctx context.Context, run *Run, manifest *Manifest, opts Options) (err error) {
	digest, err := exporter.DigestFile(p.paths.Canonical)
	if err != nil {
		return err
	}
	manifest.Inputs.CanonicalDigest = digest

	staging, err := exporter.NewStaging(p.paths.ComputeDir, run.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if aerr := staging.Abort(); aerr != nil {
				run.Logger.Warn("failed to clean staging directory", slog.String("error", aerr.Error()))
			}
		}
	}()

	outputs, err := staging.WriteTables(ctx, run.Tables()...)
	if err != nil {
		return err
	}
	if opts.Workbook {
		out, err := staging.WriteWorkbook(
			exporter.Sheet{Title: "Radar", Frame: run.Radar},
			exporter.Sheet{Title: "Positioning", Frame: run.Positioning},
		)
		if err != nil {
			return err
		}
		outputs = append(outputs, out)
	}
	manifest.Outputs = outputs
	manifest.finish(nil)

	if _, err := staging.WriteFile(config.ManifestFile, 0, manifest.Render); err != nil {
		return err
	}
	return staging.Commit()
}

func errorType(err error) string {
	if errors.Is(err, ErrOutputsExist) {
		return "USAGE"
	}
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "UNKNOWN"
}
