package candles

import (
	"sort"
	"sync"
)

// Store holds aggregated candles per symbol. Loaders for different symbols
// may add concurrently.
type Store struct {
	globalMu sync.RWMutex
	data     map[string]*symbolCandles
}

type symbolCandles struct {
	mu      sync.Mutex
	candles []Candle
}

func NewStore() *Store {
	return &Store{
		data: make(map[string]*symbolCandles),
	}
}

// Add appends candles to symbol's series.
func (s *Store) Add(symbol string, candles ...Candle) {
	s.globalMu.RLock()
	store, ok := s.data[symbol]
	s.globalMu.RUnlock()

	if !ok {
		s.globalMu.Lock()
		if store, ok = s.data[symbol]; !ok {
			store = &symbolCandles{}
			s.data[symbol] = store
		}
		s.globalMu.Unlock()
	}

	store.mu.Lock()
	store.candles = append(store.candles, candles...)
	store.mu.Unlock()
}

func (s *Store) Get(symbol string) []Candle {
	s.globalMu.RLock()
	store, ok := s.data[symbol]
	s.globalMu.RUnlock()
	if !ok {
		return nil
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	cp := make([]Candle, len(store.candles))
	copy(cp, store.candles)
	return cp
}

// Symbols returns the stored symbols in sorted order.
func (s *Store) Symbols() []string {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	out := make([]string, 0, len(s.data))
	for sym := range s.data {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// CountAll returns the total number of candles across all symbols.
func (s *Store) CountAll() int {
	s.globalMu.RLock()
	defer s.globalMu.RUnlock()

	total := 0
	for _, store := range s.data {
		store.mu.Lock()
		total += len(store.candles)
		store.mu.Unlock()
	}
	return total
}
