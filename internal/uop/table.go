package uop

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
)

// FileTable is the deduplicated file table of a container.
type FileTable struct {
	Header Header
	// Declared is the file count stored in the table block header.
	Declared uint32
	// NextTable is the offset of a chained table block, 0 if none.
	NextTable uint64

	byChecksum        map[uint64]Entry
	order             []uint64
	records           int
	totalUncompressed uint64
}

// ReadFileTable parses the header and the first file table block of r.
// Records are scanned until a terminal record; running out of data first
// is ErrCorruptArchive. Duplicate checksums keep their first record.
func ReadFileTable(r io.ReaderAt) (*FileTable, error) {
	var hdr [HeaderSize]byte
	n, err := r.ReadAt(hdr[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := decodeHeader(hdr[:n])
	if err != nil {
		return nil, err
	}
	if h.TableOffset > math.MaxInt64-TableHeaderSize {
		return nil, fmt.Errorf("table offset %d: %w", h.TableOffset, ErrCorruptArchive)
	}

	ft := &FileTable{Header: h, byChecksum: make(map[uint64]Entry)}

	br := bufio.NewReaderSize(io.NewSectionReader(r, int64(h.TableOffset), math.MaxInt64-int64(h.TableOffset)), 64*1024)
	var block [TableHeaderSize]byte
	if _, err := io.ReadFull(br, block[:]); err != nil {
		return nil, tableReadError("table header", err)
	}
	ft.Declared = le32(block[0:4])
	ft.NextTable = uint64(le32(block[4:8])) | uint64(le32(block[8:12]))<<32

	var rec [EntrySize]byte
	for {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			return nil, tableReadError(fmt.Sprintf("record %d", ft.records), err)
		}
		e := decodeEntry(rec[:])
		if e.terminal() {
			break
		}
		ft.records++
		if _, dup := ft.byChecksum[e.PathChecksum]; dup {
			continue
		}
		ft.byChecksum[e.PathChecksum] = e
		ft.order = append(ft.order, e.PathChecksum)
		ft.totalUncompressed += uint64(e.UncompressedSize)
	}
	return ft, nil
}

func tableReadError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: unterminated file table: %w", what, ErrCorruptArchive)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

// Lookup returns the entry stored under checksum.
func (ft *FileTable) Lookup(checksum uint64) (Entry, bool) {
	e, ok := ft.byChecksum[checksum]
	return e, ok
}

// Entries returns the unique entries in table order.
func (ft *FileTable) Entries() []Entry {
	out := make([]Entry, 0, len(ft.order))
	for _, c := range ft.order {
		out = append(out, ft.byChecksum[c])
	}
	return out
}

// Len is the number of unique entries.
func (ft *FileTable) Len() int {
	return len(ft.order)
}

// Records is the number of non-terminal records scanned, duplicates included.
func (ft *FileTable) Records() int {
	return ft.records
}

// TotalUncompressed sums the uncompressed size of the unique entries.
func (ft *FileTable) TotalUncompressed() uint64 {
	return ft.totalUncompressed
}
