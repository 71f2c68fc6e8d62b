package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cotcli/internal/config"
	apierrors "cotcli/internal/errors"
	"cotcli/internal/services"
	"cotcli/internal/shared/testutil"
)

// MockMarketService is a mock implementation of MarketServiceInterface
type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) Markets(ctx context.Context) []services.MarketInfo {
	args := m.Called()
	return args.Get(0).([]services.MarketInfo)
}

func (m *MockMarketService) Radar(ctx context.Context, q services.RadarQuery) ([]services.Row, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.Row), args.Error(1)
}

func (m *MockMarketService) Positioning(ctx context.Context, category string) ([]services.Row, error) {
	args := m.Called(category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.Row), args.Error(1)
}

func (m *MockMarketService) MarketMetrics(ctx context.Context, key string, q services.MetricsQuery) ([]services.Row, error) {
	args := m.Called(key, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.Row), args.Error(1)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) Check(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func newTestRouter(t *testing.T, markets *MockMarketService, health *MockHealthService) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewRouter(RouterDeps{
		Logger:  logger,
		Markets: markets,
		Health:  health,
	})
}

func serve(h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestMarketHandler_ListMarkets(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("Markets").Return([]services.MarketInfo{
		{Key: "gold", ContractCode: "088691", DisplayName: "Gold", Weeks: 10},
	})
	router := newTestRouter(t, svc, new(MockHealthService))

	rec, body := serve(router, "/api/v1/markets")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	markets := body["markets"].([]any)
	assert.Equal(t, "gold", markets[0].(map[string]any)["market_key"])
	svc.AssertExpectations(t)
}

func TestMarketHandler_GetRadar(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		query      services.RadarQuery
		callsSvc   bool
		wantStatus int
	}{
		{"defaults", "/api/v1/radar", services.RadarQuery{}, true, http.StatusOK},
		{"filters", "/api/v1/radar?hot_only=true&category=Metals&limit=5",
			services.RadarQuery{HotOnly: true, Category: "Metals", Limit: 5}, true, http.StatusOK},
		{"bad hot_only", "/api/v1/radar?hot_only=maybe", services.RadarQuery{}, false, http.StatusBadRequest},
		{"bad limit", "/api/v1/radar?limit=ten", services.RadarQuery{}, false, http.StatusBadRequest},
		{"limit too large", "/api/v1/radar?limit=501", services.RadarQuery{}, false, http.StatusBadRequest},
		{"negative limit", "/api/v1/radar?limit=-1", services.RadarQuery{}, false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockMarketService)
			if tt.callsSvc {
				svc.On("Radar", tt.query).Return([]services.Row{
					{"market_key": "gold", "hot_score": 9.0},
				}, nil)
			}
			router := newTestRouter(t, svc, new(MockHealthService))

			rec, body := serve(router, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.callsSvc {
				assert.Equal(t, float64(1), body["count"])
			} else {
				assert.Equal(t, "/errors/validation", body["type"])
				assert.NotNil(t, body["details"])
				svc.AssertNotCalled(t, "Radar", mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestMarketHandler_SnapshotMissing(t *testing.T) {
	svc := new(MockMarketService)
	svc.On("Positioning", "").Return(nil, apierrors.ErrSnapshotMissing)
	router := newTestRouter(t, svc, new(MockHealthService))

	rec, body := serve(router, "/api/v1/positioning")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "/errors/snapshot/unavailable", body["type"])
	assert.NotEmpty(t, body["trace_id"])
}

func TestMarketHandler_GetMarketMetrics(t *testing.T) {
	svc := new(MockMarketService)
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	svc.On("MarketMetrics", "gold", services.MetricsQuery{
		From:    from,
		To:      to,
		Columns: []string{"nc_net", "comm_net", "open_interest"},
	}).Return([]services.Row{{"market_key": "gold"}}, nil)
	svc.On("MarketMetrics", "lead", services.MetricsQuery{}).
		Return(nil, apierrors.NotFoundError("market lead"))
	router := newTestRouter(t, svc, new(MockHealthService))

	rec, body := serve(router, "/api/v1/markets/gold/metrics?from=2024-01-02&to=2024-03-05&columns=nc_net,comm_net&columns=open_interest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gold", body["market_key"])
	assert.Equal(t, float64(1), body["count"])

	rec, body = serve(router, "/api/v1/markets/lead/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/errors/not-found", body["type"])

	rec, _ = serve(router, "/api/v1/markets/gold/metrics?from=02/01/2024")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestRouter_Health(t *testing.T) {
	health := new(MockHealthService)
	health.On("Check").Return(services.HealthStatus{Status: services.StatusDegraded, Version: "test"})
	router := newTestRouter(t, new(MockMarketService), health)

	rec, body := serve(router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, new(MockMarketService), new(MockHealthService))

	rec, body := serve(router, "/api/v1/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/errors/not-found", body["type"])
}

func TestRouter_MetricsAndRateLimit(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	providers, err := infrastructureProviders(logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	health := new(MockHealthService)
	health.On("Check").Return(services.HealthStatus{Status: services.StatusOK})
	router := NewRouter(RouterDeps{
		Logger:    logger,
		Markets:   new(MockMarketService),
		Health:    health,
		Providers: providers,
		RateLimit: config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2},
	})

	rec, _ := serve(router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec, _ = serve(router, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
