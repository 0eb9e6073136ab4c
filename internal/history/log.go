package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DefaultScanBatch is the number of records read per batch while scanning.
const DefaultScanBatch = 1024

var (
	// ErrCorruptLog marks a log or archive whose contents cannot be trusted.
	ErrCorruptLog = errors.New("corrupt history log")

	// ErrStorage marks a failure to append to the shared log.
	ErrStorage = errors.New("history log write failed")
)

// CorruptLogError describes why a log was rejected.
type CorruptLogError struct {
	Path   string
	Length int64  // file length, set for size mismatches
	Size   int    // expected record size
	Symbol string // set when a record names a symbol outside the universe
	Offset int64  // byte offset of the offending record
}

func (e *CorruptLogError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: record at offset %d references unknown symbol %q", e.Path, e.Offset, e.Symbol)
	}
	return fmt.Sprintf("%s: length %d is not a multiple of the record size %d", e.Path, e.Length, e.Size)
}

func (e *CorruptLogError) Unwrap() error { return ErrCorruptLog }

// Log is the shared append-only trade history file. One Log value is shared
// by every writer; Append serializes them.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog returns a Log backed by the file at path. The file need not exist.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file path.
func (l *Log) Path() string { return l.path }

// Validate checks the length invariant and returns the number of records in
// the file. A missing file holds zero records. It never observes a partially
// appended batch from this Log.
func (l *Log) Validate() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat history log: %w", err)
	}
	return checkLength(l.path, info.Size(), RecordSize)
}

func checkLength(path string, length int64, size int) (int64, error) {
	if length%int64(size) != 0 {
		return 0, &CorruptLogError{Path: path, Length: length, Size: size}
	}
	return length / int64(size), nil
}

// Scan decodes every record present when the scan starts and passes it to fn
// in file order. Records appended during the scan are not visited. batch
// bounds how many records are held in memory at once.
func (l *Log) Scan(batch int, fn func(offset int64, r TradeRecord) error) error {
	if batch <= 0 {
		batch = DefaultScanBatch
	}

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat history log: %w", err)
	}
	total, err := checkLength(l.path, info.Size(), RecordSize)
	if err != nil {
		return err
	}

	buf := make([]byte, batch*RecordSize)
	var offset int64
	for done := int64(0); done < total; {
		n := min(int64(batch), total-done)
		chunk := buf[:n*RecordSize]
		if _, err := io.ReadFull(f, chunk); err != nil {
			return fmt.Errorf("read history log at offset %d: %w", offset, err)
		}
		for i := int64(0); i < n; i++ {
			r, _ := Decode(chunk[i*RecordSize : (i+1)*RecordSize])
			if err := fn(offset, r); err != nil {
				return err
			}
			offset += RecordSize
		}
		done += n
	}
	return nil
}

// Append writes records as one contiguous block at the end of the log. The
// file is opened and closed inside the critical section so concurrent callers
// never interleave bytes. Any error wraps ErrStorage.
func (l *Log) Append(records []TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(records)*RecordSize)
	for _, r := range records {
		buf = AppendRecord(buf, r)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("%w: create log directory: %w", ErrStorage, err)
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: cannot open %s for writing: %w", ErrStorage, l.path, err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %w", ErrStorage, l.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrStorage, l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrStorage, l.path, err)
	}
	return nil
}
