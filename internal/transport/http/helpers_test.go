package http

import (
	"log/slog"

	"cotcli/internal/config"
	"cotcli/internal/infrastructure"
)

func infrastructureProviders(logger *slog.Logger) (*infrastructure.OTelProviders, error) {
	return infrastructure.InitializeOTel(config.OTelConfig{ServiceName: "test", MetricsEnabled: true}, logger)
}
