package backfill

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tradehistory/internal/history"
	"tradehistory/pkg/binance"

	"go.uber.org/zap"
)

// rangeSource serves a dense history 0..n-1 per symbol the way the venue
// does: limit trades starting at fromID, or the newest limit trades.
type rangeSource struct {
	mu    sync.Mutex
	limit int
	sizes map[string]int64
	errs  map[string]error
	calls map[string][]*int64
}

func newRangeSource(pageSize int, sizes map[string]int64) *rangeSource {
	return &rangeSource{
		limit: pageSize + 1,
		sizes: sizes,
		errs:  make(map[string]error),
		calls: make(map[string][]*int64),
	}
}

func (s *rangeSource) HistoricalTrades(ctx context.Context, symbol string, fromID *int64) ([]binance.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[symbol] = append(s.calls[symbol], fromID)
	if err := s.errs[symbol]; err != nil {
		return nil, err
	}

	n := s.sizes[symbol]
	lo := max(0, n-int64(s.limit))
	if fromID != nil {
		lo = *fromID
	}
	hi := min(lo+int64(s.limit), n)

	var out []binance.Trade
	for id := lo; id < hi; id++ {
		out = append(out, trade(id))
	}
	return out, nil
}

func (s *rangeSource) callCount(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls[symbol])
}

// scriptedSource returns pre-recorded pages in order, then empty pages.
type scriptedSource struct {
	mu    sync.Mutex
	pages map[string][][]int64
	errs  map[string][]error // consumed before pages
	calls map[string]int
}

func (s *scriptedSource) HistoricalTrades(ctx context.Context, symbol string, fromID *int64) ([]binance.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[symbol]++

	if errs := s.errs[symbol]; len(errs) > 0 {
		s.errs[symbol] = errs[1:]
		return nil, errs[0]
	}
	pages := s.pages[symbol]
	if len(pages) == 0 {
		return nil, nil
	}
	s.pages[symbol] = pages[1:]

	out := make([]binance.Trade, 0, len(pages[0]))
	for _, id := range pages[0] {
		out = append(out, trade(id))
	}
	return out, nil
}

func trade(id int64) binance.Trade {
	return binance.Trade{
		ID:           id,
		Price:        0.001 * float64(id+1),
		Quantity:     1,
		Time:         1515369600000 + id*1000,
		IsBestMatch:  true,
		IsBuyerMaker: id%2 == 0,
	}
}

type failingLog struct{}

func (failingLog) Append([]history.TradeRecord) error {
	return fmt.Errorf("%w: disk full", history.ErrStorage)
}

func newScheduler(source TradeSource, log Appender, pageSize int) *Scheduler {
	return &Scheduler{
		Fetcher: &Fetcher{
			Source:     source,
			PageSize:   pageSize,
			RetryDelay: time.Millisecond,
			Logger:     zap.NewNop(),
		},
		Log:     log,
		Workers: 4,
		Logger:  zap.NewNop(),
	}
}

func tempLog(t *testing.T) *history.Log {
	t.Helper()
	return history.NewLog(filepath.Join(t.TempDir(), "history.dat"))
}

func idsBySymbol(t *testing.T, l *history.Log) map[string][]int64 {
	t.Helper()
	out := make(map[string][]int64)
	err := l.Scan(0, func(_ int64, r history.TradeRecord) error {
		out[r.Symbol] = append(out[r.Symbol], r.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}
