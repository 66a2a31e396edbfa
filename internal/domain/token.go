package domain

import "time"

// TokenPrice is the latest known USD price of a token.
type TokenPrice struct {
	BucketedTimestamp string  `json:"bucketed_timestamp_minutes_utc"`
	PriceUSD          float64 `json:"price_usd"`
	TokenAddress      string  `json:"token_address,omitempty"`
	Symbol            string  `json:"symbol,omitempty"`
	Source            string  `json:"source,omitempty"`
}

// Latest price sources.
const (
	PriceSourceAptosAnalytics = "aptos-analytics"
	PriceSourceCoinGecko      = "coingecko"
)

// TrackedWallet is a wallet the service has served performance data for.
type TrackedWallet struct {
	Address       string    `json:"address"`
	FirstSeen     time.Time `json:"first_seen"`
	LastRequested time.Time `json:"last_requested"`
	RequestCount  int64     `json:"request_count"`
}

// CoinGeckoID maps token addresses to CoinGecko API identifiers.
var CoinGeckoID = map[string]string{
	AptosCoinAddress: "aptos",
}
