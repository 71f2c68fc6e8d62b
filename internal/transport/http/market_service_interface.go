package http

import (
	"context"

	"cotcli/internal/services"
)

// MarketServiceInterface defines the queries the market handler needs.
type MarketServiceInterface interface {
	Markets(ctx context.Context) []services.MarketInfo
	Radar(ctx context.Context, q services.RadarQuery) ([]services.Row, error)
	Positioning(ctx context.Context, category string) ([]services.Row, error)
	MarketMetrics(ctx context.Context, key string, q services.MetricsQuery) ([]services.Row, error)
}

// HealthServiceInterface defines the health check the health handler needs.
type HealthServiceInterface interface {
	Check(ctx context.Context) services.HealthStatus
}
