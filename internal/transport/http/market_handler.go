package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "cotcli/internal/errors"
)

// MarketHandler serves markets, views and per-market history.
type MarketHandler struct {
	service      MarketServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(service MarketServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *MarketHandler {
	return &MarketHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "market_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the market routes
func (h *MarketHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/markets", h.ListMarkets)
	r.Get("/markets/{market_key}/metrics", h.GetMarketMetrics)
	r.Get("/radar", h.GetRadar)
	r.Get("/positioning", h.GetPositioning)
	return r
}

// ListMarkets handles GET /api/v1/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := h.service.Markets(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"markets": markets,
		"count":   len(markets),
	})
}

// GetRadar handles GET /api/v1/radar
func (h *MarketHandler) GetRadar(w http.ResponseWriter, r *http.Request) {
	q, err := parseRadarQuery(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rows, err := h.service.Radar(r.Context(), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"rows":  rows,
		"count": len(rows),
	})
}

// GetPositioning handles GET /api/v1/positioning
func (h *MarketHandler) GetPositioning(w http.ResponseWriter, r *http.Request) {
	category, err := parsePositioningQuery(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rows, err := h.service.Positioning(r.Context(), category)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"rows":  rows,
		"count": len(rows),
	})
}

// GetMarketMetrics handles GET /api/v1/markets/{market_key}/metrics
func (h *MarketHandler) GetMarketMetrics(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "market_key")
	q, err := parseMetricsQuery(key, r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rows, err := h.service.MarketMetrics(r.Context(), key, q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "served market metrics",
		slog.String("market_key", key),
		slog.Int("rows", len(rows)))
	render.JSON(w, r, map[string]interface{}{
		"market_key": key,
		"rows":       rows,
		"count":      len(rows),
	})
}
