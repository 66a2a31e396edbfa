package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func newTestAnalyticsProvider(breaker *CircuitBreaker, fn roundTripFunc) *AptosAnalyticsProvider {
	p := NewAptosAnalyticsProvider(testTracer, AptosAnalyticsOptions{BaseURL: "http://example/v1/analytics/", APIKey: "secret"}, breaker)
	p.client = &http.Client{Transport: fn}
	p.limiter = NewRateLimiter(100, time.Millisecond)
	return p
}

func TestAptosAnalyticsFetchBalanceHistory(t *testing.T) {
	t.Parallel()

	var gotReq *http.Request
	p := newTestAnalyticsProvider(nil, func(req *http.Request) (*http.Response, error) {
		gotReq = req
		return jsonResponse(http.StatusOK, `{"status":"success","data":[{"hourly_timestamp":"2024-01-01T00:00:00Z","total_store_balance_usd":12.5}],"error":null,"message":""}`), nil
	})

	records, err := p.FetchBalanceHistory(context.Background(), "0xabc", "year")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotReq.URL.Path != "/v1/analytics/historical_store_balances" {
		t.Fatalf("unexpected path: %s", gotReq.URL.Path)
	}
	if gotReq.URL.Query().Get("account_address") != "0xabc" || gotReq.URL.Query().Get("lookback") != "year" {
		t.Fatalf("unexpected query: %s", gotReq.URL.RawQuery)
	}
	if gotReq.Header.Get("Authorization") != "Bearer secret" {
		t.Fatalf("expected bearer auth header, got %q", gotReq.Header.Get("Authorization"))
	}
	if len(records) != 1 || records[0]["total_store_balance_usd"] != 12.5 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestAptosAnalyticsFetchPriceHistory(t *testing.T) {
	t.Parallel()

	p := newTestAnalyticsProvider(nil, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/token/historical_prices") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("address") != "0x1::aptos_coin::AptosCoin" || req.URL.Query().Get("lookback") != "week" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, `{"status":"success","data":[{"price_hourly_timestamp":"2024-01-01T00:00:00Z","price_usd":9.1},{"price_hourly_timestamp":"2024-01-01T01:00:00Z","price_usd":9.2}]}`), nil
	})

	records, err := p.FetchPriceHistory(context.Background(), "0x1::aptos_coin::AptosCoin", "week")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestAptosAnalyticsFetchLatestPricePicksNewest(t *testing.T) {
	t.Parallel()

	p := newTestAnalyticsProvider(nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"success","data":[{"bucketed_timestamp_minutes_utc":"2024-01-01T00:10:00Z","price_usd":9.5},{"bucketed_timestamp_minutes_utc":"2024-01-01T00:05:00Z","price_usd":9.0}]}`), nil
	})

	price, err := p.FetchLatestPrice(context.Background(), "0x1::aptos_coin::AptosCoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price.PriceUSD != 9.5 || price.BucketedTimestamp != "2024-01-01T00:10:00Z" {
		t.Fatalf("unexpected latest price: %+v", price)
	}
}

func TestAptosAnalyticsErrorEnvelope(t *testing.T) {
	t.Parallel()

	p := newTestAnalyticsProvider(nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"error","data":null,"error":"invalid lookback","message":""}`), nil
	})

	_, err := p.FetchBalanceHistory(context.Background(), "0xabc", "decade")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid lookback") {
		t.Fatalf("expected upstream reason in error, got %v", err)
	}
}

func TestAptosAnalyticsNullData(t *testing.T) {
	t.Parallel()

	p := newTestAnalyticsProvider(nil, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"status":"success","data":null}`), nil
	})

	if _, err := p.FetchPriceHistory(context.Background(), "0x1", "day"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error for null data, got %v", err)
	}
}

func TestAptosAnalyticsServerErrorOpensBreaker(t *testing.T) {
	t.Parallel()

	calls := 0
	breaker := NewCircuitBreaker("aptos-analytics", 2, time.Hour)
	p := newTestAnalyticsProvider(breaker, func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusBadGateway, "bad gateway"), nil
	})

	for i := 0; i < 2; i++ {
		if _, err := p.FetchBalanceHistory(context.Background(), "0xabc", "year"); !errors.Is(err, ErrUpstream) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}
	if _, err := p.FetchBalanceHistory(context.Background(), "0xabc", "year"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected open breaker to skip upstream, got %d calls", calls)
	}
}

func TestAptosAnalyticsClientErrorKeepsBreakerClosed(t *testing.T) {
	t.Parallel()

	breaker := NewCircuitBreaker("aptos-analytics", 1, time.Hour)
	p := newTestAnalyticsProvider(breaker, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, "unauthorized"), nil
	})

	if _, err := p.FetchBalanceHistory(context.Background(), "0xabc", "year"); err == nil {
		t.Fatal("expected error")
	}
	if breaker.State() != BreakerClosed {
		t.Fatalf("expected closed breaker, got %s", breaker.State())
	}
}

func TestAptosAnalyticsDefaults(t *testing.T) {
	p := NewAptosAnalyticsProvider(testTracer, AptosAnalyticsOptions{}, nil)
	if p.baseURL != aptosAnalyticsBaseURL {
		t.Fatalf("expected default base url, got %s", p.baseURL)
	}
	if p.client.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", p.client.Timeout)
	}
}

func TestAptosAnalyticsCallerCancelKeepsBreakerClosed(t *testing.T) {
	t.Parallel()

	healthy := false
	breaker := NewCircuitBreaker("aptos-analytics", 2, time.Hour)
	p := newTestAnalyticsProvider(breaker, func(req *http.Request) (*http.Response, error) {
		if healthy {
			return jsonResponse(http.StatusOK, `{"status":"success","data":[]}`), nil
		}
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		_, err := p.FetchPriceHistory(ctx, "0x1::aptos_coin::AptosCoin", "day")
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}
	}
	if breaker.State() != BreakerClosed {
		t.Fatalf("expected closed breaker after caller timeouts, got %s", breaker.State())
	}

	healthy = true
	if _, err := p.FetchPriceHistory(context.Background(), "0x1::aptos_coin::AptosCoin", "day"); err != nil {
		t.Fatalf("expected healthy call to pass, got %v", err)
	}
}

func TestAptosAnalyticsTransportErrorCountsAsFailure(t *testing.T) {
	t.Parallel()

	breaker := NewCircuitBreaker("aptos-analytics", 1, time.Hour)
	p := newTestAnalyticsProvider(breaker, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	if _, err := p.FetchBalanceHistory(context.Background(), "0xabc", "year"); err == nil {
		t.Fatal("expected error")
	}
	if breaker.State() != BreakerOpen {
		t.Fatalf("expected open breaker, got %s", breaker.State())
	}
}
