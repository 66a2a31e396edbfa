package handler

import (
	"log"
	"net/http"
	"strings"

	"aptos-pulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const priceCacheControl = "public, s-maxage=300, stale-while-revalidate=600"

// GetTokenLatestPrice godoc
// @Summary      Latest token price
// @Description  Returns the most recent USD price for a token, falling back to CoinGecko for APT
// @Tags         analytics
// @Produce      json
// @Param        address  query  string  true  "Token address (tokenAddress is accepted as an alias)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/analytics/token-latest-price [get]
func (h *Handler) GetTokenLatestPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-token-latest-price")
	defer span.End()

	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		address = strings.TrimSpace(c.Query("tokenAddress"))
	}
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameter: address"})
		return
	}
	span.SetAttributes(attribute.String("asset", address))

	price, err := h.prices.GetLatestPrice(ctx, address)
	if err != nil {
		log.Printf("no latest price for %s: %v", address, err)
		c.JSON(http.StatusOK, gin.H{
			"data":    []domain.TokenPrice{},
			"message": "No price data available for this token",
			"address": address,
		})
		return
	}

	c.Header("Cache-Control", priceCacheControl)
	c.JSON(http.StatusOK, gin.H{
		"data":   []domain.TokenPrice{*price},
		"source": price.Source,
	})
}
