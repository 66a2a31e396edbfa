package handler

import (
	"net/http"

	"aptos-pulse/internal/domain"
	"aptos-pulse/internal/portfolio"

	"github.com/gin-gonic/gin"
)

type timeframeInfo struct {
	domain.TimeframeConfig
	PriceDriven bool `json:"price_driven"`
}

// ListTimeframes godoc
// @Summary      Supported timeframes
// @Description  Lists each timeframe token with the lookbacks and window it resolves to
// @Tags         analytics
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/analytics/timeframes [get]
func (h *Handler) ListTimeframes(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.list-timeframes")
	defer span.End()

	out := make([]timeframeInfo, 0, len(domain.SupportedTimeframes))
	for _, tf := range domain.SupportedTimeframes {
		cfg := portfolio.ResolveTimeframe(tf)
		out = append(out, timeframeInfo{TimeframeConfig: cfg, PriceDriven: portfolio.PriceDriven(cfg)})
	}

	c.JSON(http.StatusOK, gin.H{"timeframes": out, "default": defaultTimeframe})
}
