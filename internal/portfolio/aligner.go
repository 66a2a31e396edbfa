package portfolio

import (
	"math"
	"sort"
	"time"

	"aptos-pulse/internal/domain"
)

const dayMillis = 24 * 60 * 60 * 1000

// BalanceIndex maps UTC calendar days to the wallet's USD value on that day.
// Records sharing a day overwrite each other in input order.
type BalanceIndex struct {
	values map[string]float64
	keys   []string
}

// NewBalanceIndex indexes balances by day. Records without a usable
// timestamp are skipped.
func NewBalanceIndex(balances []domain.RawBalanceRecord) *BalanceIndex {
	idx := &BalanceIndex{values: make(map[string]float64, len(balances))}
	for _, rec := range balances {
		raw, ok := BalanceTimestamp(rec)
		if !ok {
			continue
		}
		at, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		idx.values[DateKey(at)] = BalanceValue(rec)
	}

	idx.keys = make([]string, 0, len(idx.values))
	for k := range idx.values {
		idx.keys = append(idx.keys, k)
	}
	sort.Strings(idx.keys)
	return idx
}

// Len returns the number of indexed days.
func (idx *BalanceIndex) Len() int {
	return len(idx.keys)
}

// ValueOn returns the balance for dateKey. Without an exact match it falls
// back to the latest earlier day, then to the earliest indexed day, then 0.
func (idx *BalanceIndex) ValueOn(dateKey string) float64 {
	if v, ok := idx.values[dateKey]; ok {
		return v
	}
	if len(idx.keys) == 0 {
		return 0
	}

	closest := ""
	for _, k := range idx.keys {
		if k > dateKey {
			break
		}
		closest = k
	}
	if closest == "" {
		return idx.values[idx.keys[0]]
	}
	return idx.values[closest]
}

type priceEntry struct {
	at    time.Time
	price float64
}

// priceIndex keeps upstream order. A repeated timestamp updates the price
// in place without moving the entry.
type priceIndex struct {
	entries []priceEntry
	pos     map[string]int
}

func newPriceIndex(prices []domain.RawPriceRecord) *priceIndex {
	idx := &priceIndex{
		entries: make([]priceEntry, 0, len(prices)),
		pos:     make(map[string]int, len(prices)),
	}
	for _, rec := range prices {
		raw, ok := PriceTimestamp(rec)
		if !ok {
			continue
		}
		at, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		price := PriceValue(rec)
		if i, seen := idx.pos[raw]; seen {
			idx.entries[i].price = price
			continue
		}
		idx.pos[raw] = len(idx.entries)
		idx.entries = append(idx.entries, priceEntry{at: at, price: price})
	}
	return idx
}

// nearest scans every entry in upstream order, so the first entry at the
// minimum distance wins. The scan is linear in the price history length.
func (idx *priceIndex) nearest(at time.Time) float64 {
	target := at.UnixMilli()
	best := 0.0
	minDiff := int64(math.MaxInt64)
	for _, e := range idx.entries {
		diff := target - e.at.UnixMilli()
		if diff < 0 {
			diff = -diff
		}
		if diff < minDiff {
			minDiff = diff
			best = e.price
		}
	}
	return best
}

type alignedPoint struct {
	at    time.Time
	point domain.PerformancePoint
}

// Align merges a wallet's balance history with an asset's price history
// into one series windowed to cfg relative to the current time.
func Align(balances []domain.RawBalanceRecord, prices []domain.RawPriceRecord, cfg domain.TimeframeConfig) []domain.PerformancePoint {
	return AlignAt(balances, prices, cfg, time.Now())
}

// AlignAt is Align with an explicit clock. It never fails: records without a
// usable timestamp are dropped and missing values become 0.
func AlignAt(balances []domain.RawBalanceRecord, prices []domain.RawPriceRecord, cfg domain.TimeframeConfig, now time.Time) []domain.PerformancePoint {
	var aligned []alignedPoint
	if PriceDriven(cfg) {
		aligned = alignOnPrices(prices, NewBalanceIndex(balances))
	} else {
		aligned = alignOnBalances(balances, newPriceIndex(prices))
	}

	sort.SliceStable(aligned, func(i, j int) bool {
		return aligned[i].at.Before(aligned[j].at)
	})

	out := make([]domain.PerformancePoint, 0, len(aligned))
	if cfg.Unbounded() {
		for _, a := range aligned {
			out = append(out, a.point)
		}
		return out
	}

	cutoff := now.UnixMilli() - int64(math.Round(cfg.Days*dayMillis))
	for _, a := range aligned {
		if a.at.UnixMilli() >= cutoff {
			out = append(out, a.point)
		}
	}
	return out
}

func alignOnPrices(prices []domain.RawPriceRecord, balances *BalanceIndex) []alignedPoint {
	aligned := make([]alignedPoint, 0, len(prices))
	for _, rec := range prices {
		raw, ok := PriceTimestamp(rec)
		if !ok {
			continue
		}
		at, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		price := PriceValue(rec)
		value := balances.ValueOn(DateKey(at))
		aligned = append(aligned, alignedPoint{at: at, point: newPoint(raw, value, price)})
	}
	return aligned
}

func alignOnBalances(balances []domain.RawBalanceRecord, prices *priceIndex) []alignedPoint {
	aligned := make([]alignedPoint, 0, len(balances))
	for _, rec := range balances {
		raw, ok := BalanceTimestamp(rec)
		if !ok {
			continue
		}
		at, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		value := BalanceValue(rec)
		price := prices.nearest(at)
		aligned = append(aligned, alignedPoint{at: at, point: newPoint(raw, value, price)})
	}
	return aligned
}

func newPoint(timestamp string, value, price float64) domain.PerformancePoint {
	balance := 0.0
	if price > 0 {
		balance = value / price
	}
	return domain.PerformancePoint{
		Timestamp: timestamp,
		Value:     value,
		Price:     price,
		Balance:   balance,
	}
}
