package candles

import (
	"fmt"
	"sort"
	"time"

	"tradehistory/internal/history"
)

// DefaultInterval is the bucket width used when none is given.
const DefaultInterval = 30 * time.Minute

// Candle is the OHLC summary of the trades in one interval.
type Candle struct {
	Start  int64 // bucket start, milliseconds since epoch
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64 // base asset quantity
	Trades int
}

// Aggregate buckets trades into candles of the given interval. Buckets are
// aligned to the earliest trade, not to the clock, and empty buckets are
// omitted. Trades may arrive in any order; open and close follow trade time,
// then trade id.
func Aggregate(trades []history.TradeRecord, interval time.Duration) []Candle {
	if len(trades) == 0 {
		return nil
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	sorted := make([]history.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Time != sorted[j].Time {
			return sorted[i].Time < sorted[j].Time
		}
		return sorted[i].ID < sorted[j].ID
	})

	width := interval.Milliseconds()
	origin := sorted[0].Time

	var out []Candle
	bucket := int64(-1)
	for _, t := range sorted {
		b := (t.Time - origin) / width
		if b != bucket {
			bucket = b
			out = append(out, Candle{
				Start: origin + b*width,
				Open:  t.Price,
				High:  t.Price,
				Low:   t.Price,
			})
		}
		c := &out[len(out)-1]
		c.High = max(c.High, t.Price)
		c.Low = min(c.Low, t.Price)
		c.Close = t.Price
		c.Volume += t.Quantity
		c.Trades++
	}
	return out
}

// Label renders an interval the way chart titles show it: "30m", "4h", "1d".
func Label(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return d.String()
}
