package universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradehistory/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticLister struct {
	symbols []string
	err     error
}

func (s staticLister) ListSymbols(context.Context) ([]string, error) {
	return s.symbols, s.err
}

// go test -v --run TestLoad
func TestLoad(t *testing.T) {
	loader := &SymbolLoader{
		Lister:  staticLister{symbols: []string{"AAABTC", "BBBBTC", "BCHABCBTC"}},
		Timeout: time.Second,
		Logger:  zap.NewNop(),
	}

	store, err := Load(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAABTC", "BBBBTC", "BCHABCBTC"}, store.GetAll())
	assert.Equal(t, history.SymbolIndex{"AAABTC": 0, "BBBBTC": 1, "BCHABCB": 2}, store.Index())
}

// go test -v --run TestLoadError
func TestLoadError(t *testing.T) {
	boom := errors.New("connection refused")
	loader := &SymbolLoader{Lister: staticLister{err: boom}, Logger: zap.NewNop()}

	_, err := Load(context.Background(), loader)
	assert.ErrorIs(t, err, boom)
}

// go test -v --run TestLoadSymbolsCancelled
func TestLoadSymbolsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := &SymbolLoader{Lister: staticLister{symbols: []string{"AAABTC"}}, Logger: zap.NewNop()}
	ch := make(chan string) // unbuffered and never read
	err := loader.LoadSymbols(ctx, ch)
	assert.ErrorIs(t, err, context.Canceled)

	_, open := <-ch
	assert.False(t, open)
}

// go test -v --run TestStoreGetAllCopies
func TestStoreGetAllCopies(t *testing.T) {
	s := NewStore()
	s.Add("AAABTC")
	all := s.GetAll()
	all[0] = "changed"
	assert.Equal(t, []string{"AAABTC"}, s.GetAll())
}
