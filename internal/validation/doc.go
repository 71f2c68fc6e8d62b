// Package validation holds the QA layer of a compute run: input file
// checks, the post-join invariant checks and the plain-text QA report.
package validation
