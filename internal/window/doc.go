// Package window implements the trailing-window statistics shared by every
// stage of the compute pipeline: rolling mean, population standard deviation,
// min/max, quantiles, percentile-of-current and z-scores over a fixed number
// of weekly rows with a minimum count of present observations.
//
// Missing values are NaN. A window emits a value only when it holds at least
// MinPeriods present values, so NaN rows inside the window shrink its count
// without shortening its span.
package window
