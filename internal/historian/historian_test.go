package historian

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tradehistory/internal/backfill"
	"tradehistory/internal/history"
	"tradehistory/pkg/binance"
	"tradehistory/pkg/storage/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeVenue lists symbols and serves dense trade histories 0..n-1.
type fakeVenue struct {
	mu        sync.Mutex
	symbols   []string
	sizes     map[string]int64
	pageSize  int
	listErr   error
	listCalls atomic.Int32
	calls     map[string]int
}

func (v *fakeVenue) ListSymbols(context.Context) ([]string, error) {
	v.listCalls.Add(1)
	return v.symbols, v.listErr
}

func (v *fakeVenue) HistoricalTrades(ctx context.Context, symbol string, fromID *int64) ([]binance.Trade, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.calls == nil {
		v.calls = make(map[string]int)
	}
	v.calls[symbol]++

	limit := int64(v.pageSize + 1)
	n := v.sizes[symbol]
	lo := max(0, n-limit)
	if fromID != nil {
		lo = *fromID
	}
	var out []binance.Trade
	for id := lo; id < min(lo+limit, n); id++ {
		out = append(out, binance.Trade{ID: id, Price: 1, Quantity: 1, Time: 1515369600000 + id})
	}
	return out, nil
}

type memorySink struct {
	rows []report.SyncRecord
}

func (m *memorySink) InsertOutcomes(_ context.Context, rows []report.SyncRecord) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func newHistorian(t *testing.T, venue *fakeVenue) *Historian {
	t.Helper()
	return &Historian{
		API:        venue,
		Log:        history.NewLog(filepath.Join(t.TempDir(), "history.dat")),
		PageSize:   venue.pageSize,
		Workers:    4,
		RetryDelay: time.Millisecond,
		Logger:     zap.NewNop(),
	}
}

// go test -v --run TestRunBackfillsAndResumes
func TestRunBackfillsAndResumes(t *testing.T) {
	venue := &fakeVenue{
		symbols:  []string{"AAABTC", "BBBBTC", "NEWBTC"},
		sizes:    map[string]int64{"AAABTC": 57, "BBBBTC": 12},
		pageSize: 10,
	}
	h := newHistorian(t, venue)
	sink := &memorySink{}
	h.Reports = sink

	rep, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.RunID, 26)
	assert.Equal(t, "complete=2 skipped=0 empty=1 failed=0 cancelled=0", rep.Summary())

	n, err := h.Log.Validate()
	require.NoError(t, err)
	assert.EqualValues(t, 57+12, n)

	require.Len(t, sink.rows, 3)
	assert.Equal(t, rep.RunID, sink.rows[0].RunID)
	assert.Equal(t, "AAABTC", sink.rows[0].Symbol)
	assert.Nil(t, sink.rows[0].StartMinID)
	require.NotNil(t, sink.rows[0].EndMinID)
	assert.Zero(t, *sink.rows[0].EndMinID)

	// second pass only lists symbols and re-probes the one without data
	calls := venue.calls["AAABTC"]
	second, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, rep.RunID, second.RunID)
	assert.Equal(t, "complete=0 skipped=2 empty=1 failed=0 cancelled=0", second.Summary())
	assert.Equal(t, calls, venue.calls["AAABTC"])

	n, err = h.Log.Validate()
	require.NoError(t, err)
	assert.EqualValues(t, 57+12, n)
}

// go test -v --run TestRunCorruptLogBeforeNetwork
func TestRunCorruptLogBeforeNetwork(t *testing.T) {
	venue := &fakeVenue{symbols: []string{"AAABTC"}, pageSize: 10}
	h := newHistorian(t, venue)
	require.NoError(t, h.Log.Append([]history.TradeRecord{{Symbol: "AAABTC", ID: 1}, {Symbol: "AAABTC", ID: 2}}))

	f, err := os.OpenFile(h.Log.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rep, err := h.Run(context.Background())
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, history.ErrCorruptLog)
	assert.True(t, Fatal(err))
	assert.Zero(t, venue.listCalls.Load())
}

// go test -v --run TestRunUnknownSymbolInLog
func TestRunUnknownSymbolInLog(t *testing.T) {
	venue := &fakeVenue{symbols: []string{"AAABTC"}, pageSize: 10}
	h := newHistorian(t, venue)
	require.NoError(t, h.Log.Append([]history.TradeRecord{{Symbol: "DELISTED", ID: 1}}))

	_, err := h.Run(context.Background())
	var corrupt *history.CorruptLogError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "DELISTE", corrupt.Symbol)
	assert.Empty(t, venue.calls)
}

// go test -v --run TestRunListFailure
func TestRunListFailure(t *testing.T) {
	venue := &fakeVenue{listErr: binance.ErrTransport, pageSize: 10}
	h := newHistorian(t, venue)

	_, err := h.Run(context.Background())
	assert.ErrorIs(t, err, binance.ErrTransport)
	assert.False(t, Fatal(err))
}

// go test -v --run TestSyncRecords
func TestSyncRecords(t *testing.T) {
	started := time.Now().UTC()
	rows := SyncRecords(&backfill.Report{
		RunID:     "run",
		StartedAt: started,
		Outcomes: []backfill.Outcome{
			{Symbol: "AAABTC", Start: history.Cursor{MinID: 40}, End: history.Cursor{MinID: 0}, Pages: 1, Records: 40, Status: backfill.StatusComplete},
			{Symbol: "BBBBTC", Start: history.UnknownCursor(), End: history.UnknownCursor(), Status: backfill.StatusFailed, Err: errors.New("boom")},
		},
	})
	require.Len(t, rows, 2)
	assert.EqualValues(t, 40, *rows[0].StartMinID)
	assert.Equal(t, "complete", rows[0].Status)
	assert.Nil(t, rows[1].StartMinID)
	assert.Nil(t, rows[1].EndMinID)
	assert.Equal(t, "boom", rows[1].Error)
	assert.Equal(t, started, rows[1].StartedAt)
}

// go test -v --run TestNewRunID
func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

// go test -v --run TestDailyLoader
func TestDailyLoader(t *testing.T) {
	// 30ms before midnight, every time
	now := func() time.Time { return time.Date(2026, 3, 1, 23, 59, 59, 970_000_000, time.UTC) }
	d := &DailyLoader{Now: now, Logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := d.Start(ctx, func(context.Context) error {
		if runs.Add(1) == 3 {
			cancel()
		}
		return nil
	})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daily loader did not stop")
	}
	assert.EqualValues(t, 3, runs.Load())
}

// go test -v --run TestDailyLoaderStopsOnError
func TestDailyLoaderStopsOnError(t *testing.T) {
	d := &DailyLoader{Logger: zap.NewNop()}
	boom := errors.New("disk full")

	done := d.Start(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, <-done, boom)
	_, open := <-done
	assert.False(t, open)
}

// go test -v --run TestUntilMidnight
func TestUntilMidnight(t *testing.T) {
	d := &DailyLoader{Now: func() time.Time {
		return time.Date(2026, 3, 1, 18, 30, 0, 0, time.FixedZone("KST", 9*3600))
	}}
	// 18:30 KST is 09:30 UTC
	assert.Equal(t, 14*time.Hour+30*time.Minute, d.untilMidnight())
}
