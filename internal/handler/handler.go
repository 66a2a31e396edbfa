package handler

import (
	"context"

	"aptos-pulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type PerformanceReader interface {
	GetPerformance(ctx context.Context, wallet, asset, timeframe string) (*domain.PerformanceResponse, error)
}

type LatestPriceReader interface {
	GetLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error)
}

// Dependency is an optional backing service whose availability Health reports.
type Dependency struct {
	Name string
	Up   func() bool
}

type Handler struct {
	tracer       trace.Tracer
	performance  PerformanceReader
	prices       LatestPriceReader
	dependencies []Dependency
}

func New(tracer trace.Tracer, performance PerformanceReader, prices LatestPriceReader, deps ...Dependency) *Handler {
	return &Handler{
		tracer:       tracer,
		performance:  performance,
		prices:       prices,
		dependencies: deps,
	}
}

// RegisterRoutes mounts the public routes on r and the analytics routes on
// api, which callers may guard with APIKeyAuth.
func (h *Handler) RegisterRoutes(r *gin.Engine, api *gin.RouterGroup) {
	r.GET("/health", h.Health)

	analytics := api.Group("/analytics")
	analytics.GET("/portfolio-performance", h.GetPortfolioPerformance)
	analytics.GET("/token-latest-price", h.GetTokenLatestPrice)
	analytics.GET("/timeframes", h.ListTimeframes)
}
