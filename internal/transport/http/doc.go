// Package http serves the read API over the latest compute snapshot.
//
// Handlers stay thin: they parse and validate query parameters, call a
// service, and render JSON. Every error goes through the shared
// ErrorHandler and reaches the client as an RFC 7807 problem document.
//
// Routes:
//
//	GET /healthz
//	GET /metrics
//	GET /api/v1/markets
//	GET /api/v1/radar?hot_only=&category=&limit=
//	GET /api/v1/positioning?category=
//	GET /api/v1/markets/{market_key}/metrics?from=&to=&columns=
package http
