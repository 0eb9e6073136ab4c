package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestCursorLower
func TestCursorLower(t *testing.T) {
	c := UnknownCursor()
	assert.False(t, c.Known())
	assert.False(t, c.Complete())
	assert.Equal(t, "no data", c.String())

	c = c.Lower(50, 5000)
	assert.Equal(t, Cursor{MinID: 50, MinTime: 5000}, c)

	// never increases
	assert.Equal(t, c, c.Lower(51, 1))

	c = c.Lower(0, 100)
	assert.True(t, c.Known())
	assert.True(t, c.Complete())
}

// go test -v --run TestBuildCursorsColdStart
func TestBuildCursorsColdStart(t *testing.T) {
	cursors, err := BuildCursors(tempLog(t), []string{"AAABTC", "BBBBTC"}, 0)
	require.NoError(t, err)
	assert.Len(t, cursors, 2)
	assert.False(t, cursors.Get("AAABTC").Known())
	assert.False(t, cursors.Get("BBBBTC").Known())
	assert.False(t, cursors.Get("NOTLISTED").Known())
}

// go test -v --run TestBuildCursorsMinimum
func TestBuildCursorsMinimum(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, l.Append([]TradeRecord{
		{Symbol: "AAABTC", ID: 50, Time: 500},
		{Symbol: "BBBBTC", ID: 9, Time: 90},
		{Symbol: "AAABTC", ID: 48, Time: 480},
		{Symbol: "AAABTC", ID: 49, Time: 490},
		{Symbol: "BBBBTC", ID: 0, Time: 1},
	}))

	// batch of 2 forces several reads
	cursors, err := BuildCursors(l, []string{"AAABTC", "BBBBTC", "CCCBTC"}, 2)
	require.NoError(t, err)
	assert.Equal(t, Cursor{MinID: 48, MinTime: 480}, cursors.Get("AAABTC"))
	assert.Equal(t, Cursor{MinID: 0, MinTime: 1}, cursors.Get("BBBBTC"))
	assert.True(t, cursors.Get("BBBBTC").Complete())
	assert.False(t, cursors.Get("CCCBTC").Known())
	assert.Equal(t, []string{"AAABTC", "BBBBTC", "CCCBTC"}, cursors.Keys())
}

// go test -v --run TestBuildCursorsUnknownSymbol
func TestBuildCursorsUnknownSymbol(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, l.Append([]TradeRecord{
		{Symbol: "AAABTC", ID: 5},
		{Symbol: "ZZZBTC", ID: 4},
	}))

	_, err := BuildCursors(l, []string{"AAABTC"}, 0)
	require.ErrorIs(t, err, ErrCorruptLog)

	var corrupt *CorruptLogError
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, "ZZZBTC", corrupt.Symbol)
	assert.EqualValues(t, RecordSize, corrupt.Offset)
}

// go test -v --run TestBuildCursorsTruncationCollision
func TestBuildCursorsTruncationCollision(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, l.Append([]TradeRecord{
		{Symbol: "BCHABCBTC", ID: 30, Time: 3},
		{Symbol: "BCHABCBNB", ID: 20, Time: 2},
	}))

	cursors, err := BuildCursors(l, []string{"BCHABCBTC", "BCHABCBNB"}, 0)
	require.NoError(t, err)

	// Both tickers resolve to the single key "BCHABCB" and share its cursor.
	assert.Len(t, cursors, 1)
	assert.Equal(t, Cursor{MinID: 20, MinTime: 2}, cursors.Get("BCHABCBTC"))
	assert.Equal(t, cursors.Get("BCHABCBTC"), cursors.Get("BCHABCBNB"))
	assert.Equal(t, NewSymbolIndex([]string{"BCHABCBTC", "BCHABCBNB"}), SymbolIndex{"BCHABCB": 1})
}

// go test -v --run TestSummarize
func TestSummarize(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, l.Append([]TradeRecord{
		{Symbol: "AAABTC", ID: 7, Time: 70},
		{Symbol: "ZZZBTC", ID: 4, Time: 40},
		{Symbol: "AAABTC", ID: 3, Time: 30},
	}))

	cursors, count, err := Summarize(l, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.Equal(t, Cursors{
		"AAABTC": {MinID: 3, MinTime: 30},
		"ZZZBTC": {MinID: 4, MinTime: 40},
	}, cursors)
}
