package portfolio

import "aptos-pulse/internal/domain"

// ResolveTimeframe maps a dashboard timeframe token to the lookbacks requested
// upstream and the local window/granularity. Unknown tokens resolve to the
// 7 day hourly configuration but keep the caller's token for echoing.
func ResolveTimeframe(timeframe string) domain.TimeframeConfig {
	cfg := domain.TimeframeConfig{Timeframe: timeframe}

	switch timeframe {
	case "1h":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackDay
		cfg.Days, cfg.Granularity = 1.0/24, domain.GranularityMinutes
	case "12h":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackDay
		cfg.Days, cfg.Granularity = 0.5, domain.GranularityMinutes
	case "24h":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackDay
		cfg.Days, cfg.Granularity = 1, domain.GranularityHourly
	case "7d":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackWeek
		cfg.Days, cfg.Granularity = 7, domain.GranularityHourly
	case "30d":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackMonth
		cfg.Days, cfg.Granularity = 30, domain.GranularityDaily
	case "90d":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackYear
		cfg.Days, cfg.Granularity = 90, domain.GranularityDaily
	case "1y":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackYear
		cfg.Days, cfg.Granularity = 365, domain.GranularityDaily
	case "all":
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackAll, domain.LookbackAll
		cfg.Days, cfg.Granularity = domain.UnboundedDays, domain.GranularityDaily
	default:
		cfg.BalanceLookback, cfg.PriceLookback = domain.LookbackYear, domain.LookbackWeek
		cfg.Days, cfg.Granularity = 7, domain.GranularityHourly
	}

	return cfg
}

// PriceDriven reports whether cfg aligns on the price series' time axis.
// The day threshold wins over the granularity tag, so 30d and 90d (daily)
// are still price driven.
func PriceDriven(cfg domain.TimeframeConfig) bool {
	return cfg.Granularity == domain.GranularityMinutes ||
		cfg.Granularity == domain.GranularityHourly ||
		cfg.Days <= 90
}
