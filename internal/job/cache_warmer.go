package job

import (
	"context"
	"log"
	"time"

	"aptos-pulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type HistoryRefresher interface {
	RefreshBalanceHistory(ctx context.Context, wallet, lookback string) ([]domain.RawBalanceRecord, error)
	RefreshPriceHistory(ctx context.Context, asset, lookback string) ([]domain.RawPriceRecord, error)
	DefaultAsset() string
}

type LatestPriceRefresher interface {
	RefreshLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error)
}

type WalletLister interface {
	RecentWallets(ctx context.Context, limit int) ([]*domain.TrackedWallet, error)
}

// CacheWarmer keeps the response cache populated so dashboard requests for
// the default asset and recently seen wallets rarely hit upstream.
type CacheWarmer struct {
	tracer       trace.Tracer
	history      HistoryRefresher
	prices       LatestPriceRefresher
	wallets      WalletLister
	pollInterval time.Duration
	walletLimit  int
	walletDelay  time.Duration
}

func NewCacheWarmer(
	tracer trace.Tracer,
	history HistoryRefresher,
	prices LatestPriceRefresher,
	wallets WalletLister,
	pollIntervalSecs int,
	walletLimit int,
) *CacheWarmer {
	if pollIntervalSecs <= 0 {
		pollIntervalSecs = 600
	}
	return &CacheWarmer{
		tracer:       tracer,
		history:      history,
		prices:       prices,
		wallets:      wallets,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
		walletLimit:  walletLimit,
		walletDelay:  15 * time.Second,
	}
}

// Start launches the warm loops. Blocks until ctx is cancelled.
func (w *CacheWarmer) Start(ctx context.Context) {
	log.Println("Cache warmer starting...")

	go w.pollLoop(ctx, "asset-prices", 0, w.warmAssetPrices)

	if w.wallets != nil && w.walletLimit > 0 {
		// Staggered so wallet fetches don't compete with the price burst.
		go w.pollLoop(ctx, "wallet-balances", w.walletDelay, w.warmWallets)
	}

	<-ctx.Done()
	log.Println("Cache warmer stopped")
}

func (w *CacheWarmer) pollLoop(ctx context.Context, name string, delay time.Duration, fn func(context.Context) error) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	if err := fn(ctx); err != nil {
		log.Printf("warmer %s initial run error: %v", name, err)
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("warmer %s error: %v", name, err)
			}
		}
	}
}

// warmAssetPrices refreshes every price lookback of the default asset plus
// its latest price. Individual failures are logged, not returned.
func (w *CacheWarmer) warmAssetPrices(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "cache-warmer.warm-asset-prices")
	defer span.End()

	asset := w.history.DefaultAsset()
	warmed := 0
	for _, lookback := range domain.SupportedPriceLookbacks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.history.RefreshPriceHistory(ctx, asset, lookback); err != nil {
			log.Printf("price history warm error for %s/%s: %v", asset, lookback, err)
			continue
		}
		warmed++
	}
	if w.prices != nil {
		if _, err := w.prices.RefreshLatestPrice(ctx, asset); err != nil {
			log.Printf("latest price warm error for %s: %v", asset, err)
		}
	}

	span.SetAttributes(attribute.Int("lookbacks_warmed", warmed))
	log.Printf("Warmed %d price lookbacks for %s", warmed, asset)
	return nil
}

func (w *CacheWarmer) warmWallets(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "cache-warmer.warm-wallets")
	defer span.End()

	wallets, err := w.wallets.RecentWallets(ctx, w.walletLimit)
	if err != nil {
		return err
	}

	lookbacks := []string{domain.LookbackYear, domain.LookbackAll}
	for _, wallet := range wallets {
		for _, lookback := range lookbacks {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := w.history.RefreshBalanceHistory(ctx, wallet.Address, lookback); err != nil {
				log.Printf("balance history warm error for %s/%s: %v", wallet.Address, lookback, err)
			}
		}
	}

	span.SetAttributes(attribute.Int("wallets", len(wallets)))
	log.Printf("Warmed balance history for %d wallets", len(wallets))
	return nil
}
