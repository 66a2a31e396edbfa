package service

import (
	"context"
	"log"
	"strings"

	"aptos-pulse/internal/cache"
	"aptos-pulse/internal/domain"
	"aptos-pulse/internal/portfolio"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	MessageNoBalanceHistory = "No balance history found for this wallet"
	MessageNoPriceData      = "No price data available"
)

type BalanceHistoryFetcher interface {
	FetchBalanceHistory(ctx context.Context, wallet, lookback string) ([]domain.RawBalanceRecord, error)
}

type PriceHistoryFetcher interface {
	FetchPriceHistory(ctx context.Context, asset, lookback string) ([]domain.RawPriceRecord, error)
}

type WalletTracker interface {
	TouchWallet(ctx context.Context, address string) error
}

// PerformanceService builds wallet value series from upstream balance and
// price histories.
type PerformanceService struct {
	tracer       trace.Tracer
	balances     BalanceHistoryFetcher
	prices       PriceHistoryFetcher
	cache        *cache.ResponseCache
	wallets      WalletTracker
	defaultAsset string
	align        func([]domain.RawBalanceRecord, []domain.RawPriceRecord, domain.TimeframeConfig) []domain.PerformancePoint
}

func NewPerformanceService(
	tracer trace.Tracer,
	balances BalanceHistoryFetcher,
	prices PriceHistoryFetcher,
	responseCache *cache.ResponseCache,
	wallets WalletTracker,
	defaultAsset string,
) *PerformanceService {
	if strings.TrimSpace(defaultAsset) == "" {
		defaultAsset = domain.AptosCoinAddress
	}
	return &PerformanceService{
		tracer:       tracer,
		balances:     balances,
		prices:       prices,
		cache:        responseCache,
		wallets:      wallets,
		defaultAsset: defaultAsset,
		align:        portfolio.Align,
	}
}

// DefaultAsset is the asset priced when a request names none.
func (s *PerformanceService) DefaultAsset() string {
	return s.defaultAsset
}

// GetPerformance resolves timeframe, fetches both histories in parallel and
// aligns them. Either fetch failing fails the request; an empty history
// yields a successful empty response without aligning.
func (s *PerformanceService) GetPerformance(ctx context.Context, wallet, asset, timeframe string) (*domain.PerformanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "performance-service.get-performance")
	defer span.End()

	if strings.TrimSpace(asset) == "" {
		asset = s.defaultAsset
	}
	cfg := portfolio.ResolveTimeframe(timeframe)
	span.SetAttributes(
		attribute.String("wallet", wallet),
		attribute.String("asset", asset),
		attribute.String("timeframe", timeframe),
		attribute.Bool("price_driven", portfolio.PriceDriven(cfg)),
	)

	s.trackWallet(ctx, wallet)

	var balances []domain.RawBalanceRecord
	var prices []domain.RawPriceRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balances, err = s.BalanceHistory(gctx, wallet, cfg.BalanceLookback)
		return err
	})
	g.Go(func() error {
		var err error
		prices, err = s.PriceHistory(gctx, asset, cfg.PriceLookback)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(balances) == 0 {
		log.Printf("no balance data returned for wallet %s", wallet)
		return emptyResponse(timeframe, MessageNoBalanceHistory), nil
	}
	if len(prices) == 0 {
		log.Printf("no price data returned for asset %s", asset)
		return emptyResponse(timeframe, MessageNoPriceData), nil
	}

	points := s.align(balances, prices, cfg)
	if isFlat(points) {
		log.Printf("wallet %s has flat balance history over %s", wallet, timeframe)
	}
	span.SetAttributes(attribute.Int("data_points", len(points)))

	return &domain.PerformanceResponse{
		Success:    true,
		Data:       points,
		Timeframe:  timeframe,
		DataPoints: len(points),
	}, nil
}

// BalanceHistory returns the wallet's raw balance history, served from cache when possible.
func (s *PerformanceService) BalanceHistory(ctx context.Context, wallet, lookback string) ([]domain.RawBalanceRecord, error) {
	key := cache.BalanceHistoryKey(wallet, lookback)

	var cached []domain.RawBalanceRecord
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		log.Printf("redis cache read error for %s: %v", key, err)
	} else if hit {
		return cached, nil
	}
	return s.RefreshBalanceHistory(ctx, wallet, lookback)
}

// RefreshBalanceHistory fetches the wallet's balance history upstream and caches it.
func (s *PerformanceService) RefreshBalanceHistory(ctx context.Context, wallet, lookback string) ([]domain.RawBalanceRecord, error) {
	records, err := s.balances.FetchBalanceHistory(ctx, wallet, lookback)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, cache.BalanceHistoryKey(wallet, lookback), records, s.cache.HistoryTTL()); err != nil {
		log.Printf("redis cache write error for balances of %s: %v", wallet, err)
	}
	return records, nil
}

// PriceHistory returns the asset's raw price history, served from cache when possible.
func (s *PerformanceService) PriceHistory(ctx context.Context, asset, lookback string) ([]domain.RawPriceRecord, error) {
	key := cache.PriceHistoryKey(asset, lookback)

	var cached []domain.RawPriceRecord
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		log.Printf("redis cache read error for %s: %v", key, err)
	} else if hit {
		return cached, nil
	}
	return s.RefreshPriceHistory(ctx, asset, lookback)
}

// RefreshPriceHistory fetches the asset's price history upstream and caches it.
func (s *PerformanceService) RefreshPriceHistory(ctx context.Context, asset, lookback string) ([]domain.RawPriceRecord, error) {
	records, err := s.prices.FetchPriceHistory(ctx, asset, lookback)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, cache.PriceHistoryKey(asset, lookback), records, s.cache.HistoryTTL()); err != nil {
		log.Printf("redis cache write error for prices of %s: %v", asset, err)
	}
	return records, nil
}

func (s *PerformanceService) trackWallet(ctx context.Context, wallet string) {
	if s.wallets == nil {
		return
	}
	if err := s.wallets.TouchWallet(ctx, wallet); err != nil {
		log.Printf("wallet tracking error for %s: %v", wallet, err)
	}
}

func emptyResponse(timeframe, message string) *domain.PerformanceResponse {
	return &domain.PerformanceResponse{
		Success:    true,
		Data:       []domain.PerformancePoint{},
		Timeframe:  timeframe,
		DataPoints: 0,
		Message:    message,
	}
}

func isFlat(points []domain.PerformancePoint) bool {
	if len(points) < 2 {
		return false
	}
	for _, p := range points[1:] {
		if p.Value != points[0].Value {
			return false
		}
	}
	return true
}
