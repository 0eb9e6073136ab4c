package candles

import (
	"context"
	"fmt"
	"time"

	"tradehistory/internal/history"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// readArchive is replaced in tests; bzip2 has no encoder in the standard library.
var readArchive = history.ReadArchive

// LoadLog scans the shared log once and aggregates the trades of each of
// symbols. Symbols are matched by their truncated key, so tickers sharing a
// key share their candles. Symbols without trades are absent from the store.
func LoadLog(l *history.Log, symbols []string, interval time.Duration, batch int) (*Store, error) {
	names := make(map[string][]string, len(symbols))
	for _, s := range symbols {
		key := history.SymbolKey(s)
		names[key] = append(names[key], s)
	}

	trades := make(map[string][]history.TradeRecord, len(names))
	err := l.Scan(batch, func(_ int64, r history.TradeRecord) error {
		if _, ok := names[r.Symbol]; ok {
			trades[r.Symbol] = append(trades[r.Symbol], r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	store := NewStore()
	for key, recs := range trades {
		series := Aggregate(recs, interval)
		for _, name := range names[key] {
			store.Add(name, series...)
		}
	}
	return store, nil
}

// LoadArchives aggregates per-symbol archives from dir, reading up to
// parallel archives at once. With no symbols every archive in dir is loaded.
func LoadArchives(ctx context.Context, dir string, symbols []string, interval time.Duration, parallel int, logger *zap.Logger) (*Store, error) {
	archives, err := history.ListArchives(dir)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		symbols = history.ArchiveSymbols(archives)
	}
	for _, s := range symbols {
		if _, ok := archives[s]; !ok {
			return nil, fmt.Errorf("no archive for %s in %s", s, dir)
		}
	}

	store := NewStore()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for _, symbol := range symbols {
		symbol := symbol
		path := archives[symbol]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			logger.Info("loading archive", zap.String("symbol", symbol), zap.String("path", path))

			var trades []history.TradeRecord
			err := readArchive(path, func(r history.TradeRecord) error {
				trades = append(trades, r)
				return nil
			})
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			series := Aggregate(trades, interval)
			store.Add(symbol, series...)
			logger.Info("archive loaded", zap.String("symbol", symbol),
				zap.Int("trades", len(trades)), zap.Int("candles", len(series)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return store, nil
}
