package portfolio

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"aptos-pulse/internal/domain"
)

// fieldCandidate extracts one possible field from a loosely typed record.
type fieldCandidate func(record map[string]any) (any, bool)

func field(name string) fieldCandidate {
	return func(record map[string]any) (any, bool) {
		v, ok := record[name]
		if !ok || v == nil {
			return nil, false
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return nil, false
		}
		return v, true
	}
}

// Resolution order matters: the analytics API names the same column
// differently depending on lookback.
var (
	balanceTimestampFields = []fieldCandidate{
		field("date_day"),
		field("hourly_timestamp"),
		field("date"),
		field("timestamp"),
	}
	balanceValueFields = []fieldCandidate{
		field("total_balance_usd"),
		field("total_store_balance_usd"),
		field("balance_usd"),
	}
	priceTimestampFields = []fieldCandidate{
		field("price_hourly_timestamp"),
		field("bucketed_timestamp_minutes_utc"),
		field("timestamp"),
		field("date"),
	}
	priceValueFields = []fieldCandidate{
		field("price_usd"),
	}
)

func firstPresent(record map[string]any, chain []fieldCandidate) (any, bool) {
	for _, candidate := range chain {
		if v, ok := candidate(record); ok {
			return v, true
		}
	}
	return nil, false
}

// BalanceTimestamp returns the record's timestamp as served upstream.
func BalanceTimestamp(record domain.RawBalanceRecord) (string, bool) {
	return timestampOf(record, balanceTimestampFields)
}

// BalanceValue returns the record's USD balance, or 0 when absent.
func BalanceValue(record domain.RawBalanceRecord) float64 {
	return valueOf(record, balanceValueFields)
}

// PriceTimestamp returns the record's timestamp as served upstream.
func PriceTimestamp(record domain.RawPriceRecord) (string, bool) {
	return timestampOf(record, priceTimestampFields)
}

// PriceValue returns the record's USD price, or 0 when absent.
func PriceValue(record domain.RawPriceRecord) float64 {
	return valueOf(record, priceValueFields)
}

func timestampOf(record map[string]any, chain []fieldCandidate) (string, bool) {
	v, ok := firstPresent(record, chain)
	if !ok {
		return "", false
	}
	switch ts := v.(type) {
	case string:
		return ts, true
	case float64:
		return epochMillisString(ts), true
	case json.Number:
		n, err := ts.Float64()
		if err != nil {
			return "", false
		}
		return epochMillisString(n), true
	case int64:
		return epochMillisString(float64(ts)), true
	case int:
		return epochMillisString(float64(ts)), true
	default:
		return "", false
	}
}

func epochMillisString(ms float64) string {
	return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339Nano)
}

func valueOf(record map[string]any, chain []fieldCandidate) float64 {
	v, ok := firstPresent(record, chain)
	if !ok {
		return 0
	}
	return asFloat(v)
}

func asFloat(v any) float64 {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		n, _ = x.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp shapes the analytics API emits.
// Zone-less values are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DateKey is the UTC calendar day of t, used to key the balance index.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
