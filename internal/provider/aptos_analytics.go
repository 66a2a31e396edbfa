package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aptos-pulse/internal/domain"
	"aptos-pulse/internal/portfolio"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const aptosAnalyticsBaseURL = "https://api.mainnet.aptoslabs.com/v1/analytics"

// ErrUpstream wraps non-success answers from an upstream API.
var ErrUpstream = errors.New("upstream error")

// AptosAnalyticsOptions configures an AptosAnalyticsProvider.
type AptosAnalyticsOptions struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerMinute int
}

// AptosAnalyticsProvider reads balance and price histories from the Aptos
// Labs analytics API.
type AptosAnalyticsProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
	breaker *CircuitBreaker
}

func NewAptosAnalyticsProvider(tracer trace.Tracer, opts AptosAnalyticsOptions, breaker *CircuitBreaker) *AptosAnalyticsProvider {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = aptosAnalyticsBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rate := opts.RatePerMinute
	if rate <= 0 {
		rate = 120
	}
	return &AptosAnalyticsProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(opts.APIKey),
		tracer:  tracer,
		limiter: NewPerMinuteLimiter(rate),
		breaker: breaker,
	}
}

// analyticsEnvelope is the wrapper every analytics endpoint answers with.
type analyticsEnvelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// FetchBalanceHistory returns historical store balances for a wallet.
func (p *AptosAnalyticsProvider) FetchBalanceHistory(ctx context.Context, wallet, lookback string) ([]domain.RawBalanceRecord, error) {
	ctx, span := p.tracer.Start(ctx, "aptos-analytics.fetch-balance-history")
	defer span.End()
	span.SetAttributes(attribute.String("wallet", wallet), attribute.String("lookback", lookback))

	params := url.Values{}
	params.Set("account_address", wallet)
	params.Set("lookback", lookback)

	var records []domain.RawBalanceRecord
	if err := p.get(ctx, "/historical_store_balances", params, &records); err != nil {
		return nil, fmt.Errorf("fetch balance history for %s: %w", wallet, err)
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// FetchPriceHistory returns historical USD prices for an asset.
func (p *AptosAnalyticsProvider) FetchPriceHistory(ctx context.Context, asset, lookback string) ([]domain.RawPriceRecord, error) {
	ctx, span := p.tracer.Start(ctx, "aptos-analytics.fetch-price-history")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset), attribute.String("lookback", lookback))

	params := url.Values{}
	params.Set("address", asset)
	params.Set("lookback", lookback)

	var records []domain.RawPriceRecord
	if err := p.get(ctx, "/token/historical_prices", params, &records); err != nil {
		return nil, fmt.Errorf("fetch price history for %s: %w", asset, err)
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

// FetchLatestPrice returns the most recent bucketed price for an asset.
func (p *AptosAnalyticsProvider) FetchLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error) {
	ctx, span := p.tracer.Start(ctx, "aptos-analytics.fetch-latest-price")
	defer span.End()

	params := url.Values{}
	params.Set("address", asset)

	var records []domain.RawPriceRecord
	if err := p.get(ctx, "/token/latest_price", params, &records); err != nil {
		return nil, fmt.Errorf("fetch latest price for %s: %w", asset, err)
	}

	var latest *domain.TokenPrice
	var latestAt time.Time
	for _, rec := range records {
		raw, ok := portfolio.PriceTimestamp(rec)
		if !ok {
			continue
		}
		at, ok := portfolio.ParseTimestamp(raw)
		if !ok || (latest != nil && !at.After(latestAt)) {
			continue
		}
		latestAt = at
		latest = &domain.TokenPrice{
			BucketedTimestamp: raw,
			PriceUSD:          portfolio.PriceValue(rec),
			TokenAddress:      asset,
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no latest price for %s", ErrUpstream, asset)
	}
	return latest, nil
}

func (p *AptosAnalyticsProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := p.breaker.Allow(); err != nil {
		return err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		p.breaker.Skip()
		return fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := p.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.breaker.Skip()
		return err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		recordTransportError(ctx, p.breaker)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		recordTransportError(ctx, p.breaker)
		return err
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			p.breaker.Failure()
		} else {
			p.breaker.Success()
		}
		return fmt.Errorf("%w: aptos analytics %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	p.breaker.Success()

	var env analyticsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode analytics envelope: %w", err)
	}
	if env.Status != "success" || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		reason := env.Error
		if reason == "" {
			reason = env.Message
		}
		if reason == "" {
			reason = "unexpected response"
		}
		return fmt.Errorf("%w: %s", ErrUpstream, reason)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode analytics data: %w", err)
	}
	return nil
}

// recordTransportError charges a failed exchange to the breaker unless the
// caller's own context ended it.
func recordTransportError(ctx context.Context, breaker *CircuitBreaker) {
	if ctx.Err() != nil {
		breaker.Skip()
		return
	}
	breaker.Failure()
}
