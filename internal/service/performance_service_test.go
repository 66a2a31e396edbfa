package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"aptos-pulse/internal/cache"
	"aptos-pulse/internal/domain"
)

func TestPerformanceService_AlignsBalanceDriven(t *testing.T) {
	t.Parallel()

	balances := &mockBalanceFetcher{records: []domain.RawBalanceRecord{
		{"date_day": "2024-01-02", "total_balance_usd": 200.0},
		{"date_day": "2024-01-01", "total_balance_usd": 100.0},
	}}
	prices := &mockPriceFetcher{records: []domain.RawPriceRecord{
		{"bucketed_timestamp_minutes_utc": "2024-01-01T00:00:00Z", "price_usd": 10.0},
		{"bucketed_timestamp_minutes_utc": "2024-01-02T00:00:00Z", "price_usd": 20.0},
	}}
	wallets := &mockWalletTracker{}
	svc := NewPerformanceService(testTracer, balances, prices, nil, wallets, "")

	resp, err := svc.GetPerformance(context.Background(), "0xabc", "", "all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.Timeframe != "all" || resp.DataPoints != 2 || resp.Message != "" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Data[0].Value != 100 || resp.Data[0].Balance != 10 || resp.Data[1].Value != 200 {
		t.Fatalf("unexpected points: %+v", resp.Data)
	}
	if balances.lastLookback != domain.LookbackAll || prices.lastLookback != domain.LookbackAll {
		t.Fatalf("unexpected lookbacks: %s %s", balances.lastLookback, prices.lastLookback)
	}
	if prices.lastAsset != domain.AptosCoinAddress {
		t.Fatalf("expected default asset, got %s", prices.lastAsset)
	}
	if len(wallets.touched) != 1 || wallets.touched[0] != "0xabc" {
		t.Fatalf("expected wallet tracked, got %v", wallets.touched)
	}
}

func TestPerformanceService_AlignsPriceDriven(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	day := now.Format("2006-01-02")
	balances := &mockBalanceFetcher{records: []domain.RawBalanceRecord{
		{"date_day": day, "total_balance_usd": 50.0},
	}}
	prices := &mockPriceFetcher{records: []domain.RawPriceRecord{
		{"bucketed_timestamp_minutes_utc": now.Add(-2 * time.Hour).Format(time.RFC3339), "price_usd": 5.0},
		{"bucketed_timestamp_minutes_utc": now.Add(-30 * time.Hour).Format(time.RFC3339), "price_usd": 4.0},
	}}
	svc := NewPerformanceService(testTracer, balances, prices, nil, nil, "0xasset")

	resp, err := svc.GetPerformance(context.Background(), "0xabc", "", "24h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.DataPoints != 1 {
		t.Fatalf("expected the window to keep 1 point, got %d: %+v", resp.DataPoints, resp.Data)
	}
	if resp.Data[0].Price != 5 || resp.Data[0].Value != 50 || resp.Data[0].Balance != 10 {
		t.Fatalf("unexpected point: %+v", resp.Data[0])
	}
	if balances.lastLookback != domain.LookbackYear || prices.lastLookback != domain.LookbackDay {
		t.Fatalf("unexpected lookbacks: %s %s", balances.lastLookback, prices.lastLookback)
	}
	if prices.lastAsset != "0xasset" {
		t.Fatalf("expected configured default asset, got %s", prices.lastAsset)
	}
}

func TestPerformanceService_EmptyBalancesShortCircuit(t *testing.T) {
	t.Parallel()

	prices := &mockPriceFetcher{records: []domain.RawPriceRecord{}}
	svc := NewPerformanceService(testTracer, &mockBalanceFetcher{}, prices, nil, nil, "")
	svc.align = failAlign(t)

	resp, err := svc.GetPerformance(context.Background(), "0xabc", "", "30d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.Message != MessageNoBalanceHistory || resp.DataPoints != 0 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Data == nil {
		t.Fatal("expected an empty, non-nil data slice")
	}
}

func TestPerformanceService_EmptyPricesShortCircuit(t *testing.T) {
	t.Parallel()

	balances := &mockBalanceFetcher{records: []domain.RawBalanceRecord{
		{"date_day": "2024-01-01", "total_balance_usd": 1.0},
	}}
	svc := NewPerformanceService(testTracer, balances, &mockPriceFetcher{}, nil, nil, "")
	svc.align = failAlign(t)

	resp, err := svc.GetPerformance(context.Background(), "0xabc", "", "7d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message != MessageNoPriceData || resp.Timeframe != "7d" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestPerformanceService_UpstreamFailure(t *testing.T) {
	t.Parallel()

	upstream := errors.New("analytics unavailable")
	svc := NewPerformanceService(testTracer,
		&mockBalanceFetcher{err: upstream},
		&mockPriceFetcher{records: []domain.RawPriceRecord{{"price_usd": 1.0}}},
		nil, nil, "")

	if _, err := svc.GetPerformance(context.Background(), "0xabc", "", "7d"); !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestPerformanceService_WalletTrackingIsBestEffort(t *testing.T) {
	t.Parallel()

	balances := &mockBalanceFetcher{records: []domain.RawBalanceRecord{
		{"date_day": "2024-01-01", "total_balance_usd": 1.0},
	}}
	prices := &mockPriceFetcher{records: []domain.RawPriceRecord{
		{"bucketed_timestamp_minutes_utc": "2024-01-01T00:00:00Z", "price_usd": 1.0},
	}}
	wallets := &mockWalletTracker{err: errors.New("db down")}
	svc := NewPerformanceService(testTracer, balances, prices, nil, wallets, "")

	if _, err := svc.GetPerformance(context.Background(), "0xabc", "", "all"); err != nil {
		t.Fatalf("tracking failure should not fail the request: %v", err)
	}
}

func TestPerformanceService_HistoryServedFromCache(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	rc := cache.NewResponseCache(fake, 5*time.Minute, time.Minute)
	balances := &mockBalanceFetcher{records: []domain.RawBalanceRecord{
		{"date_day": "2024-01-01", "total_balance_usd": 1.0},
	}}
	prices := &mockPriceFetcher{records: []domain.RawPriceRecord{
		{"bucketed_timestamp_minutes_utc": "2024-01-01T00:00:00Z", "price_usd": 1.0},
	}}
	svc := NewPerformanceService(testTracer, balances, prices, rc, nil, "")

	for i := 0; i < 2; i++ {
		if _, err := svc.GetPerformance(context.Background(), "0xABC", "", "all"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if balances.calls != 1 || prices.calls != 1 {
		t.Fatalf("expected one upstream call each, got balances=%d prices=%d", balances.calls, prices.calls)
	}
	if fake.ttls[cache.BalanceHistoryKey("0xabc", domain.LookbackAll)] != 5*time.Minute {
		t.Fatalf("unexpected ttls: %v", fake.ttls)
	}
}

func TestPerformanceService_RefreshBypassesCache(t *testing.T) {
	t.Parallel()

	rc := cache.NewResponseCache(newFakeRedis(), time.Minute, time.Minute)
	prices := &mockPriceFetcher{records: []domain.RawPriceRecord{{"price_usd": 1.0}}}
	svc := NewPerformanceService(testTracer, &mockBalanceFetcher{}, prices, rc, nil, "")

	for i := 0; i < 2; i++ {
		if _, err := svc.RefreshPriceHistory(context.Background(), domain.AptosCoinAddress, domain.LookbackDay); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if prices.calls != 2 {
		t.Fatalf("expected two upstream calls, got %d", prices.calls)
	}
}

func TestIsFlat(t *testing.T) {
	t.Parallel()

	flat := []domain.PerformancePoint{{Value: 3}, {Value: 3}}
	if !isFlat(flat) {
		t.Fatal("expected flat")
	}
	if isFlat([]domain.PerformancePoint{{Value: 3}}) {
		t.Fatal("a single point is not a flat history")
	}
	if isFlat([]domain.PerformancePoint{{Value: 3}, {Value: 4}}) {
		t.Fatal("expected not flat")
	}
}

func failAlign(t *testing.T) func([]domain.RawBalanceRecord, []domain.RawPriceRecord, domain.TimeframeConfig) []domain.PerformancePoint {
	return func([]domain.RawBalanceRecord, []domain.RawPriceRecord, domain.TimeframeConfig) []domain.PerformancePoint {
		t.Error("aligner should not run")
		return nil
	}
}

type mockBalanceFetcher struct {
	records      []domain.RawBalanceRecord
	err          error
	calls        int
	lastLookback string
}

func (m *mockBalanceFetcher) FetchBalanceHistory(ctx context.Context, wallet, lookback string) ([]domain.RawBalanceRecord, error) {
	m.calls++
	m.lastLookback = lookback
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockPriceFetcher struct {
	records      []domain.RawPriceRecord
	err          error
	calls        int
	lastAsset    string
	lastLookback string
}

func (m *mockPriceFetcher) FetchPriceHistory(ctx context.Context, asset, lookback string) ([]domain.RawPriceRecord, error) {
	m.calls++
	m.lastAsset = asset
	m.lastLookback = lookback
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockWalletTracker struct {
	touched []string
	err     error
}

func (m *mockWalletTracker) TouchWallet(ctx context.Context, address string) error {
	m.touched = append(m.touched, address)
	return m.err
}
