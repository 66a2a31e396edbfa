package domain

// AptosCoinAddress is the fully qualified type of the native APT coin, the
// default asset priced against wallet balances.
const AptosCoinAddress = "0x1::aptos_coin::AptosCoin"

// UnboundedDays marks a timeframe that is never windowed (the "all" token).
const UnboundedDays = 999999

// Granularity selects how finely the output series is sampled.
type Granularity string

const (
	GranularityMinutes Granularity = "minutes"
	GranularityHourly  Granularity = "hourly"
	GranularityDaily   Granularity = "daily"
)

// Lookback values understood by the analytics API.
const (
	LookbackDay   = "day"
	LookbackWeek  = "week"
	LookbackMonth = "month"
	LookbackYear  = "year"
	LookbackAll   = "all"
)

// RawBalanceRecord is one row of historical store balances as returned upstream.
// Field names vary between lookbacks, see portfolio.BalanceTimestamp.
type RawBalanceRecord map[string]any

// RawPriceRecord is one row of historical token prices as returned upstream.
type RawPriceRecord map[string]any

// TimeframeConfig is the resolved form of a user facing timeframe token.
type TimeframeConfig struct {
	Timeframe       string      `json:"timeframe"`
	BalanceLookback string      `json:"balance_lookback"`
	PriceLookback   string      `json:"price_lookback"`
	Days            float64     `json:"days"`
	Granularity     Granularity `json:"granularity"`
}

// Unbounded reports whether the config disables output windowing.
func (c TimeframeConfig) Unbounded() bool {
	return c.Days >= UnboundedDays
}

// PerformancePoint is a single aligned sample of wallet value.
type PerformancePoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
	Price     float64 `json:"price"`
	Balance   float64 `json:"balance"`
}

// PerformanceResponse is the JSON envelope served to the dashboard.
type PerformanceResponse struct {
	Success    bool               `json:"success"`
	Data       []PerformancePoint `json:"data"`
	Timeframe  string             `json:"timeframe"`
	DataPoints int                `json:"dataPoints"`
	Message    string             `json:"message,omitempty"`
}

// SupportedTimeframes lists the timeframe tokens the dashboard offers.
var SupportedTimeframes = []string{"1h", "12h", "24h", "7d", "30d", "90d", "1y", "all"}

// SupportedPriceLookbacks are the distinct price lookbacks used by SupportedTimeframes.
var SupportedPriceLookbacks = []string{LookbackDay, LookbackWeek, LookbackMonth, LookbackYear, LookbackAll}
