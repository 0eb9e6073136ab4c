package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradehistory/internal/history"
	"tradehistory/pkg/binance"

	"go.uber.org/zap"
)

// ErrStalled is a known cursor for which the venue returned no older trades.
// Trade ids are dense per symbol, so this only happens when the venue and the
// log disagree.
var ErrStalled = errors.New("backfill stalled: no trades below cursor")

// TradeSource is the historical-trades call of the venue.
type TradeSource interface {
	HistoricalTrades(ctx context.Context, symbol string, fromID *int64) ([]binance.Trade, error)
}

// Page is one fetched batch, ready to append, and the cursor after it.
type Page struct {
	Records []history.TradeRecord
	Cursor  history.Cursor
	Retries int
}

type Fetcher struct {
	Source     TradeSource
	PageSize   int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// FromID returns the lower bound of the page just older than cur. For an
// unknown cursor there is no bound and the most recent page is requested.
func (f *Fetcher) FromID(cur history.Cursor) (int64, bool) {
	if !cur.Known() {
		return 0, false
	}
	return max(0, cur.MinID-int64(f.PageSize)-1), true
}

// NextPage fetches the page older than cur. Empty server responses are
// retried with the same request until ctx ends. Trades at or above the cursor
// are dropped, so the returned records are all new to the log.
//
// An empty page for an unknown cursor means the symbol has never traded and
// is returned without error. An empty page for a known, incomplete cursor is
// ErrStalled.
func (f *Fetcher) NextPage(ctx context.Context, symbol string, cur history.Cursor) (Page, error) {
	page := Page{Cursor: cur}

	var fromID *int64
	if id, ok := f.FromID(cur); ok {
		fromID = &id
	}

	var trades []binance.Trade
	for {
		var err error
		trades, err = f.Source.HistoricalTrades(ctx, symbol, fromID)
		if err == nil {
			break
		}
		if !binance.Retryable(err) {
			return page, err
		}
		page.Retries++
		f.Logger.Debug("empty server response, retrying",
			zap.String("symbol", symbol), zap.Int("retry", page.Retries))
		if err := sleep(ctx, f.RetryDelay); err != nil {
			return page, err
		}
	}

	page.Records = make([]history.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.ID >= cur.MinID {
			continue
		}
		page.Records = append(page.Records, history.TradeRecord{
			Symbol:       symbol,
			Price:        t.Price,
			Quantity:     t.Quantity,
			ID:           t.ID,
			Time:         t.Time,
			IsBestMatch:  t.IsBestMatch,
			IsBuyerMaker: t.IsBuyerMaker,
		})
		page.Cursor = page.Cursor.Lower(t.ID, t.Time)
	}

	if len(page.Records) == 0 && cur.Known() {
		return page, fmt.Errorf("%w: %s at id %d", ErrStalled, symbol, cur.MinID)
	}
	return page, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
