// Package services implements the read side of the COT snapshot.
//
// SnapshotStore keeps the latest published metrics, radar and positioning
// tables in memory and swaps them atomically when the compute run
// publishes a new metrics table. MarketService answers queries against
// whatever snapshot is current; HealthService reports on it.
//
// Services hold no HTTP concerns. Errors are AppError or APIError values
// that the transport layer renders as problem details.
package services
