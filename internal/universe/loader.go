package universe

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Lister is the venue call that enumerates tradable symbols.
type Lister interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

type SymbolLoader struct {
	Lister  Lister
	Timeout time.Duration
	Logger  *zap.Logger
}

// LoadSymbols fetches the venue's symbols and streams them into the provided
// channel, which it always closes.
func (l *SymbolLoader) LoadSymbols(ctx context.Context, ch chan<- string) error {
	defer close(ch) // Ensure downstream consumers can exit cleanly

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	symbols, err := l.Lister.ListSymbols(ctx)
	if err != nil {
		l.Logger.Error("failed to load symbols", zap.Error(err))
		return err
	}
	l.Logger.Info("loaded symbols", zap.Int("count", len(symbols)))

	for _, symbol := range symbols {
		select {
		case ch <- symbol:
		case <-ctx.Done():
			l.Logger.Warn("symbol streaming interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}

	return nil
}

// Load runs the loader into a fresh Store and waits for it to fill.
func Load(ctx context.Context, l *SymbolLoader) (*Store, error) {
	store := NewStore()
	ch := make(chan string, 100)
	done := store.StartWorker(ch)

	err := l.LoadSymbols(ctx, ch)
	<-done
	if err != nil {
		return nil, err
	}
	return store, nil
}
