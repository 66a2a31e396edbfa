package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aptos-pulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches spot prices from the CoinGecko free API. It only
// knows the assets listed in domain.CoinGeckoID.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
	breaker *CircuitBreaker
}

// NewCoinGeckoProvider is rate limited to 8 requests per minute (free tier).
func NewCoinGeckoProvider(tracer trace.Tracer, baseURL string, breaker *CircuitBreaker) *CoinGeckoProvider {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = coingeckoBaseURL
	}
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
		limiter: NewRateLimiter(8, 7500*time.Millisecond),
		breaker: breaker,
	}
}

// FetchLatestPrice returns the current USD price for asset.
func (p *CoinGeckoProvider) FetchLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-latest-price")
	defer span.End()

	cgID, ok := domain.CoinGeckoID[asset]
	if !ok {
		return nil, fmt.Errorf("unsupported asset on coingecko: %s", asset)
	}

	params := url.Values{}
	params.Set("ids", cgID)
	params.Set("vs_currencies", "usd")

	body, err := p.doRequest(ctx, p.baseURL+"/simple/price?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch coingecko price for %s: %w", cgID, err)
	}

	// Response shape: {"aptos": {"usd": 8.12}}
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse coingecko price: %w", err)
	}
	quote, ok := raw[cgID]
	if !ok {
		return nil, fmt.Errorf("%w: coingecko has no quote for %s", ErrUpstream, cgID)
	}
	usd, ok := quote["usd"]
	if !ok {
		return nil, fmt.Errorf("%w: coingecko has no usd quote for %s", ErrUpstream, cgID)
	}

	return &domain.TokenPrice{
		BucketedTimestamp: time.Now().UTC().Truncate(time.Minute).Format(time.RFC3339),
		PriceUSD:          usd,
		TokenAddress:      asset,
	}, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	if err := p.breaker.Allow(); err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		p.breaker.Skip()
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.breaker.Skip()
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		recordTransportError(ctx, p.breaker)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			p.breaker.Failure()
		} else {
			p.breaker.Success()
		}
		return nil, fmt.Errorf("%w: coingecko API error %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}
	p.breaker.Success()

	return io.ReadAll(resp.Body)
}
