// Package operations runs a compute pass end to end.
//
// A Pipeline takes the run lock, executes its registered steps in order
// against a Run, writes the QA report, then stages and publishes every
// table together with a manifest. Steps share state only through the Run
// they are given.
//
// Core Components:
//
// Step: one unit of work that produces a table.
//
// Registry: the ordered set of steps a pipeline executes.
//
// Lock: the exclusive-create lock file that keeps runs from overlapping.
//
// Manifest: the per-run record of stage timings, outputs and QA counts.
//
// Example usage:
//
//	p, err := operations.NewPipeline(paths, cfg.Compute, logger, providers)
//	if err != nil {
//		return err
//	}
//	manifest, err := p.Run(ctx, operations.Options{Overwrite: true})
package operations
