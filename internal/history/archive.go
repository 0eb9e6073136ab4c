package history

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArchiveExt is the extension of per-symbol history archives.
const ArchiveExt = ".tar.bz2"

// ListArchives returns symbol -> path for every archive in dir. The symbol is
// the file name up to its first dot. A missing dir yields an empty map.
func ListArchives(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}
	out := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArchiveExt) {
			continue
		}
		symbol := archiveSymbol(e.Name())
		if symbol == "" {
			continue
		}
		out[symbol] = filepath.Join(dir, e.Name())
	}
	return out, nil
}

// ArchiveSymbols returns the sorted symbols of ListArchives.
func ArchiveSymbols(archives map[string]string) []string {
	out := make([]string, 0, len(archives))
	for s := range archives {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func archiveSymbol(name string) string {
	name = filepath.Base(name)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

// ReadArchive streams the records of a bzip2-compressed tar archive. Only
// the first entry is read; it must hold ArchiveRecordSize records.
func ReadArchive(path string, fn func(TradeRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return readTarRecords(bzip2.NewReader(f), path, archiveSymbol(path), fn)
}

func readTarRecords(r io.Reader, path, symbol string, fn func(TradeRecord) error) error {
	tr := tar.NewReader(r)
	hdr, err := tr.Next()
	if err != nil {
		return fmt.Errorf("read archive header %s: %w", path, err)
	}
	if hdr.Size%ArchiveRecordSize != 0 {
		return &CorruptLogError{Path: path + ":" + hdr.Name, Length: hdr.Size, Size: ArchiveRecordSize}
	}

	buf := make([]byte, DefaultScanBatch*ArchiveRecordSize)
	for {
		n, err := io.ReadFull(tr, buf)
		if n%ArchiveRecordSize != 0 {
			return &CorruptLogError{Path: path + ":" + hdr.Name, Length: hdr.Size, Size: ArchiveRecordSize}
		}
		for off := 0; off < n; off += ArchiveRecordSize {
			rec, _ := DecodeArchiveRecord(buf[off:off+ArchiveRecordSize], symbol)
			if err := fn(rec); err != nil {
				return err
			}
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return fmt.Errorf("read archive data %s: %w", path, err)
		}
	}
}
