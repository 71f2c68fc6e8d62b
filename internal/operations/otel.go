package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"cotcli/internal/infrastructure"
)

// TracerName names the tracer used for run spans.
const TracerName = "cotcli.compute"

// RunTracer instruments a run with spans and metrics.
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.Metrics
}

// NewRunTracer creates a tracer from the providers. Nil providers give a
// tracer that records nothing.
func NewRunTracer(providers *infrastructure.OTelProviders) (*RunTracer, error) {
	if providers == nil {
		return &RunTracer{tracer: tracenoop.NewTracerProvider().Tracer(TracerName)}, nil
	}
	metrics, err := infrastructure.NewMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create run metrics: %w", err)
	}
	return &RunTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// TraceRun starts the span covering a whole run.
func (rt *RunTracer) TraceRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "compute.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
}

// TraceStep starts the span of one step.
func (rt *RunTracer) TraceStep(ctx context.Context, runID string, step Step) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "compute.step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// RecordStep closes a step span and records its metrics.
func (rt *RunTracer) RecordStep(ctx context.Context, span trace.Span, step Step, rows int, d time.Duration, err error) {
	span.SetAttributes(
		attribute.Int("step.rows", rows),
		attribute.Float64("step.duration_seconds", d.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	rt.metrics.RecordStage(ctx, step.ID(), rows, d, err)
}

// RecordRun closes the run span and records run metrics.
func (rt *RunTracer) RecordRun(ctx context.Context, span trace.Span, m *Manifest, err error) {
	span.SetAttributes(
		attribute.String("run.status", string(m.Status)),
		attribute.Int("run.qa.errors", m.QA.Errors),
		attribute.Int("run.qa.warnings", m.QA.Warnings),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	rt.metrics.RecordRun(ctx, time.Duration(m.DurationMS)*time.Millisecond, err)
	rt.metrics.RecordQAFindings(ctx, "ERROR", m.QA.Errors)
	rt.metrics.RecordQAFindings(ctx, "WARN", m.QA.Warnings)
	rt.metrics.RecordQAFindings(ctx, "INFO", m.QA.Infos)
}
