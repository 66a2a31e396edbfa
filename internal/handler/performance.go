package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultTimeframe = "7d"

// GetPortfolioPerformance godoc
// @Summary      Wallet value over time
// @Description  Aligns the wallet's historical balances with the asset's price history for the requested timeframe
// @Tags         analytics
// @Produce      json
// @Param        address    query  string  true   "Wallet address"
// @Param        timeframe  query  string  false  "1h, 12h, 24h, 7d, 30d, 90d, 1y or all"  default(7d)
// @Param        asset      query  string  false  "Asset type priced against the balances"  default(0x1::aptos_coin::AptosCoin)
// @Success      200  {object}  domain.PerformanceResponse
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/analytics/portfolio-performance [get]
func (h *Handler) GetPortfolioPerformance(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-portfolio-performance")
	defer span.End()

	wallet := strings.TrimSpace(c.Query("address"))
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet address is required"})
		return
	}
	timeframe := c.DefaultQuery("timeframe", defaultTimeframe)
	if timeframe == "" {
		timeframe = defaultTimeframe
	}
	span.SetAttributes(attribute.String("wallet", wallet), attribute.String("timeframe", timeframe))

	resp, err := h.performance.GetPerformance(ctx, wallet, c.Query("asset"), timeframe)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "portfolio performance failed")
		log.Printf("portfolio performance error for %s: %v", wallet, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio performance data"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
