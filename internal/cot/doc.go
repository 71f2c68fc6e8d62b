// Package cot turns a canonical weekly Commitments of Traders table into the
// derived analytics tables.
//
// The stages run in a fixed order. Each one reads earlier outputs and returns
// a new frame keyed by (market_key, report_date):
//
//	positions  long, short, total and net per trader group
//	changes    week-over-week deltas of every position field
//	flows      net flow versus rotation decomposition of the deltas
//	rolling    13-week trailing means
//	extremes   all-time and trailing five-year min, max and position
//	moves      percentile of each week's change magnitude
//	metrics    the one-to-one join of the above plus open-interest analytics,
//	           classification labels, conflict, traffic signal and consensus
//
// BuildRadar and BuildPositioning reduce the metrics table to one row per
// market at that market's own latest report date.
//
// Labels that cannot be computed because an input is missing are "N/A".
// Numeric outputs use NaN for missing values.
package cot
