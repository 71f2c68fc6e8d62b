package operations

import (
	"context"

	"cotcli/internal/frame"
)

// Step represents a single step of the pipeline
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step against the run and returns the table it built.
	Execute(ctx context.Context, run *Run) (*frame.Frame, error)
}

// StepStatus represents the outcome of a step
type StepStatus string

const (
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepFunc is the body of a step.
type StepFunc func(ctx context.Context, run *Run) (*frame.Frame, error)

type funcStep struct {
	id   string
	name string
	fn   StepFunc
}

// NewStep wraps fn as a Step.
func NewStep(id, name string, fn StepFunc) Step {
	return &funcStep{id: id, name: name, fn: fn}
}

func (s *funcStep) ID() string   { return s.id }
func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Execute(ctx context.Context, run *Run) (*frame.Frame, error) {
	return s.fn(ctx, run)
}
