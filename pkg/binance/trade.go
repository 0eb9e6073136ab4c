package binance

import (
	"fmt"
	"strconv"

	gobinance "github.com/adshao/go-binance/v2"
)

// Trade is one historical trade as reported by the venue.
type Trade struct {
	ID           int64
	Price        float64
	Quantity     float64
	Time         int64 // milliseconds since epoch
	IsBestMatch  bool
	IsBuyerMaker bool
}

// ParseTradeList converts the SDK's string-typed trades. Unlike klines, a
// trade with an unparsable price or quantity is an error: skipping it would
// leave a hole in the history.
func ParseTradeList(raw []*gobinance.Trade) ([]Trade, error) {
	out := make([]Trade, 0, len(raw))
	for _, t := range raw {
		if t == nil {
			continue
		}
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: trade %d price %q", ErrTransport, t.ID, t.Price)
		}
		qty, err := strconv.ParseFloat(t.Quantity, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: trade %d quantity %q", ErrTransport, t.ID, t.Quantity)
		}
		out = append(out, Trade{
			ID:           t.ID,
			Price:        price,
			Quantity:     qty,
			Time:         t.Time,
			IsBestMatch:  t.IsBestMatch,
			IsBuyerMaker: t.IsBuyerMaker,
		})
	}
	return out, nil
}
