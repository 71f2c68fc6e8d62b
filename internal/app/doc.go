// Package app wires the read API: configuration, observability, the
// snapshot store, services, router and HTTP server.
//
// # Initialization Flow
//
//	1. Resolve paths and load the market configuration
//	2. Initialize OpenTelemetry and the metric instruments
//	3. Create the snapshot store and the services over it
//	4. Build the router and the HTTP server
//
// Start loads the current snapshot, begins polling for new ones and starts
// serving. Run blocks until the context is cancelled or an interrupt
// arrives, then shuts everything down in reverse order.
package app
