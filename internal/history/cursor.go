package history

import (
	"fmt"
	"math"
	"sort"
)

const unknownID = math.MaxInt64

// Cursor is the lowest trade id of a symbol already on disk, together with
// that trade's time. It only ever moves down.
type Cursor struct {
	MinID   int64
	MinTime int64
}

// UnknownCursor is the cursor of a symbol with no data on disk yet.
func UnknownCursor() Cursor { return Cursor{MinID: unknownID} }

// Known reports whether any trade of the symbol has been seen.
func (c Cursor) Known() bool { return c.MinID != unknownID }

// Complete reports whether backfill has reached the origin (trade id 0).
func (c Cursor) Complete() bool { return c.MinID == 0 }

// Lower returns the cursor moved down to id when id is below the current
// minimum, and c unchanged otherwise.
func (c Cursor) Lower(id, time int64) Cursor {
	if id < c.MinID {
		return Cursor{MinID: id, MinTime: time}
	}
	return c
}

func (c Cursor) String() string {
	if !c.Known() {
		return "no data"
	}
	return fmt.Sprintf("%d (%s)", c.MinID, FormatTime(c.MinTime))
}

// SymbolIndex maps a truncated symbol key to its position in the venue's
// symbol list. When two tickers share a key the later one wins.
type SymbolIndex map[string]int

// NewSymbolIndex builds the key index for symbols.
func NewSymbolIndex(symbols []string) SymbolIndex {
	idx := make(SymbolIndex, len(symbols))
	for i, s := range symbols {
		idx[SymbolKey(s)] = i
	}
	return idx
}

// Cursors holds one resume cursor per truncated symbol key.
type Cursors map[string]Cursor

// Get returns the cursor for symbol, looked up by its truncated key.
func (c Cursors) Get(symbol string) Cursor {
	if cur, ok := c[SymbolKey(symbol)]; ok {
		return cur
	}
	return UnknownCursor()
}

// Keys returns the cursor keys in sorted order.
func (c Cursors) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildCursors scans the whole log once and returns the resume cursor of every
// symbol in the universe. A record whose symbol is not in the universe makes
// the log corrupt. Symbols without records get UnknownCursor.
func BuildCursors(l *Log, symbols []string, batch int) (Cursors, error) {
	index := NewSymbolIndex(symbols)
	mins := make([]Cursor, len(symbols))
	for i := range mins {
		mins[i] = UnknownCursor()
	}

	err := l.Scan(batch, func(offset int64, r TradeRecord) error {
		i, ok := index[r.Symbol]
		if !ok {
			return &CorruptLogError{Path: l.Path(), Symbol: r.Symbol, Offset: offset}
		}
		mins[i] = mins[i].Lower(r.ID, r.Time)
		return nil
	})
	if err != nil {
		return nil, err
	}

	cursors := make(Cursors, len(index))
	for key, i := range index {
		cursors[key] = mins[i]
	}
	return cursors, nil
}

// Summarize scans the log without a symbol universe and returns the cursor of
// every key found on disk.
func Summarize(l *Log, batch int) (Cursors, int64, error) {
	cursors := make(Cursors)
	var count int64
	err := l.Scan(batch, func(_ int64, r TradeRecord) error {
		cur, ok := cursors[r.Symbol]
		if !ok {
			cur = UnknownCursor()
		}
		cursors[r.Symbol] = cur.Lower(r.ID, r.Time)
		count++
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return cursors, count, nil
}
