package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"aptos-pulse/internal/cache"
	"aptos-pulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrPriceUnavailable is returned when no source could price the asset.
var ErrPriceUnavailable = errors.New("price unavailable")

type LatestPriceFetcher interface {
	FetchLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error)
}

// PriceService answers latest-price lookups. The primary source is tried
// first, the fallback only when the primary fails.
type PriceService struct {
	tracer   trace.Tracer
	primary  LatestPriceFetcher
	fallback LatestPriceFetcher
	cache    *cache.ResponseCache
}

func NewPriceService(
	tracer trace.Tracer,
	primary LatestPriceFetcher,
	fallback LatestPriceFetcher,
	responseCache *cache.ResponseCache,
) *PriceService {
	return &PriceService{
		tracer:   tracer,
		primary:  primary,
		fallback: fallback,
		cache:    responseCache,
	}
}

// GetLatestPrice returns the cached price for asset, refreshing on a miss.
func (s *PriceService) GetLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.get-latest-price")
	defer span.End()

	asset = strings.TrimSpace(asset)
	span.SetAttributes(attribute.String("asset", asset))

	var cached domain.TokenPrice
	if hit, err := s.cache.GetJSON(ctx, cache.LatestPriceKey(asset), &cached); err != nil {
		log.Printf("redis cache read error: %v", err)
	} else if hit {
		return &cached, nil
	}
	return s.RefreshLatestPrice(ctx, asset)
}

// RefreshLatestPrice bypasses the cache and stores whatever source answers.
func (s *PriceService) RefreshLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.refresh-latest-price")
	defer span.End()

	price, err := s.fetch(ctx, asset)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("source", price.Source))

	if err := s.cache.SetJSON(ctx, cache.LatestPriceKey(asset), price, s.cache.LatestTTL()); err != nil {
		log.Printf("redis cache write error for %s: %v", asset, err)
	}
	return price, nil
}

func (s *PriceService) fetch(ctx context.Context, asset string) (*domain.TokenPrice, error) {
	if s.primary != nil {
		price, err := s.primary.FetchLatestPrice(ctx, asset)
		if err == nil {
			price.Source = domain.PriceSourceAptosAnalytics
			return price, nil
		}
		log.Printf("primary latest price failed for %s: %v", asset, err)
	}

	if s.fallback != nil {
		if _, ok := domain.CoinGeckoID[asset]; ok {
			price, err := s.fallback.FetchLatestPrice(ctx, asset)
			if err == nil {
				price.Source = domain.PriceSourceCoinGecko
				return price, nil
			}
			log.Printf("fallback latest price failed for %s: %v", asset, err)
		}
	}

	return nil, ErrPriceUnavailable
}
