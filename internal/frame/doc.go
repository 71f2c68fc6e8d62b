// Package frame provides the keyed in-memory table that every compute stage
// reads and produces. Rows are keyed by (market_key, report_date) and held
// in market-then-date order so per-market series are contiguous slices.
//
// The package also owns the strict one-to-one left join used to assemble
// the wide metrics table, failing on duplicate keys, column collisions or
// a changed row count, and the CSV encoding used for snapshot files.
package frame
