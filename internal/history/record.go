package history

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// SymbolSize is the on-disk width of the symbol field, terminator included.
	SymbolSize = 8

	// RecordSize is the encoded size of one TradeRecord in the shared log.
	RecordSize = 48

	// ArchiveRecordSize is the encoded size of one record inside a per-symbol
	// archive, which carries no symbol field.
	ArchiveRecordSize = RecordSize - SymbolSize
)

// field offsets within a log record
const (
	offPrice      = 8
	offQuantity   = 16
	offID         = 24
	offTime       = 32
	offBestMatch  = 40
	offBuyerMaker = 41
)

// TradeRecord is one executed trade as stored in the history log.
type TradeRecord struct {
	Symbol       string
	Price        float64
	Quantity     float64
	ID           int64
	Time         int64 // milliseconds since epoch
	IsBestMatch  bool
	IsBuyerMaker bool
}

// SymbolKey returns the symbol exactly as it is stored on disk: cut at the
// first NUL byte and truncated to SymbolSize-1 bytes. Two tickers sharing the
// same first seven bytes map to the same key.
func SymbolKey(symbol string) string {
	if i := strings.IndexByte(symbol, 0); i >= 0 {
		symbol = symbol[:i]
	}
	if len(symbol) > SymbolSize-1 {
		symbol = symbol[:SymbolSize-1]
	}
	return symbol
}

// Encode returns the fixed-size binary form of r.
func Encode(r TradeRecord) []byte {
	return AppendRecord(make([]byte, 0, RecordSize), r)
}

// AppendRecord appends the encoded form of r to dst.
func AppendRecord(dst []byte, r TradeRecord) []byte {
	var b [RecordSize]byte
	copy(b[:SymbolSize-1], SymbolKey(r.Symbol))
	putBody(b[SymbolSize:], r)
	return append(dst, b[:]...)
}

// Decode decodes one log record. Any block of the right length decodes; the
// contents are not validated.
func Decode(b []byte) (TradeRecord, error) {
	if len(b) != RecordSize {
		return TradeRecord{}, fmt.Errorf("decode record: got %d bytes, want %d", len(b), RecordSize)
	}
	r := readBody(b[SymbolSize:])
	r.Symbol = SymbolKey(string(b[:SymbolSize]))
	return r, nil
}

// DecodeArchiveRecord decodes one symbol-less archive record and stamps it
// with symbol.
func DecodeArchiveRecord(b []byte, symbol string) (TradeRecord, error) {
	if len(b) != ArchiveRecordSize {
		return TradeRecord{}, fmt.Errorf("decode archive record: got %d bytes, want %d", len(b), ArchiveRecordSize)
	}
	r := readBody(b)
	r.Symbol = SymbolKey(symbol)
	return r, nil
}

// putBody writes everything after the symbol; body must be ArchiveRecordSize long.
func putBody(body []byte, r TradeRecord) {
	le := binary.LittleEndian
	le.PutUint64(body[offPrice-SymbolSize:], math.Float64bits(r.Price))
	le.PutUint64(body[offQuantity-SymbolSize:], math.Float64bits(r.Quantity))
	le.PutUint64(body[offID-SymbolSize:], uint64(r.ID))
	le.PutUint64(body[offTime-SymbolSize:], uint64(r.Time))
	body[offBestMatch-SymbolSize] = boolByte(r.IsBestMatch)
	body[offBuyerMaker-SymbolSize] = boolByte(r.IsBuyerMaker)
}

func readBody(body []byte) TradeRecord {
	le := binary.LittleEndian
	return TradeRecord{
		Price:        math.Float64frombits(le.Uint64(body[offPrice-SymbolSize:])),
		Quantity:     math.Float64frombits(le.Uint64(body[offQuantity-SymbolSize:])),
		ID:           int64(le.Uint64(body[offID-SymbolSize:])),
		Time:         int64(le.Uint64(body[offTime-SymbolSize:])),
		IsBestMatch:  body[offBestMatch-SymbolSize] != 0,
		IsBuyerMaker: body[offBuyerMaker-SymbolSize] != 0,
	}
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// FormatTime renders a millisecond timestamp for progress output,
// e.g. "Tue Jan  2 15:04:05 2018 + 123 ms".
func FormatTime(ms int64) string {
	return fmt.Sprintf("%s + %d ms", time.UnixMilli(ms).UTC().Format(time.ANSIC), ms%1000)
}
