package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPPort    int
	DatabaseURL string
	RedisURL    string

	AptosAnalyticsURL    string
	AptosBuildKey        string
	CoinGeckoURL         string
	DefaultAssetAddress  string
	AnalyticsTimeoutSecs int
	AnalyticsRatePerMin  int

	BreakerFailureThreshold int
	BreakerCooldownSecs     int

	HistoryCacheTTLSecs     int
	LatestPriceCacheTTLSecs int

	WarmPollSecs    int
	WarmWalletLimit int

	APIKey             string
	CORSAllowedOrigins []string
	TelegramBotToken   string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		AptosAnalyticsURL: strings.TrimSpace(os.Getenv("APTOS_ANALYTICS_URL")),
		CoinGeckoURL:      strings.TrimSpace(os.Getenv("COINGECKO_URL")),
		APIKey:            strings.TrimSpace(os.Getenv("API_KEY")),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, wallet tracking disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	// The analytics API accepts either key; APTOS_BUILD_KEY wins when both are set.
	cfg.AptosBuildKey = strings.TrimSpace(os.Getenv("APTOS_BUILD_KEY"))
	if cfg.AptosBuildKey == "" {
		cfg.AptosBuildKey = strings.TrimSpace(os.Getenv("APTOS_BUILD_SECRET"))
	}
	if cfg.AptosBuildKey == "" {
		log.Println("Warning: APTOS_BUILD_KEY not set, analytics requests are unauthenticated")
	}

	cfg.DefaultAssetAddress = strings.TrimSpace(os.Getenv("DEFAULT_ASSET_ADDRESS"))
	if cfg.DefaultAssetAddress == "" {
		cfg.DefaultAssetAddress = "0x1::aptos_coin::AptosCoin"
	}

	cfg.CORSAllowedOrigins = []string{"*"}
	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.CORSAllowedOrigins = origins
		}
	}

	cfg.HTTPPort = positiveInt("HTTP_PORT", 8080)
	cfg.AnalyticsTimeoutSecs = positiveInt("ANALYTICS_TIMEOUT_SECS", 30)
	cfg.AnalyticsRatePerMin = positiveInt("ANALYTICS_RATE_PER_MIN", 120)
	cfg.BreakerFailureThreshold = positiveInt("BREAKER_FAILURE_THRESHOLD", 5)
	cfg.BreakerCooldownSecs = positiveInt("BREAKER_COOLDOWN_SECS", 30)
	cfg.HistoryCacheTTLSecs = positiveInt("HISTORY_CACHE_TTL_SECS", 300)
	cfg.LatestPriceCacheTTLSecs = positiveInt("LATEST_PRICE_CACHE_TTL_SECS", 60)
	cfg.WarmPollSecs = positiveInt("WARM_POLL_SECS", 600)

	cfg.WarmWalletLimit = 20
	if v := strings.TrimSpace(os.Getenv("WARM_WALLET_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WarmWalletLimit = n
		}
	}

	return cfg
}

// positiveInt reads name as a positive integer, falling back to def when the
// variable is unset or invalid.
func positiveInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, defaulting to %d", name, v, def)
		return def
	}
	return n
}
