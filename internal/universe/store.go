package universe

import (
	"sync"

	"tradehistory/internal/history"
)

// Store is the venue's symbol list, in listing order.
type Store struct {
	mu      sync.Mutex
	symbols []string
}

func NewStore() *Store {
	return &Store{
		symbols: make([]string, 0),
	}
}

func (s *Store) Add(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = append(s.symbols, symbol)
}

// StartWorker drains ch into the store. The returned channel is closed once
// ch is closed and every symbol has been added.
func (s *Store) StartWorker(ch <-chan string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for symbol := range ch {
			s.Add(symbol)
		}
	}()
	return done
}

func (s *Store) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Index returns the truncated-symbol index of the current list.
func (s *Store) Index() history.SymbolIndex {
	return history.NewSymbolIndex(s.GetAll())
}
