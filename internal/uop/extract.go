package uop

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog"

	"github.com/freeeve/ultimalive/internal/progress"
	"github.com/freeeve/ultimalive/internal/store"
)

// Extractor flattens container entries into a single stream, in the order
// given by their synthetic names.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor returns an Extractor logging to log.
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{log: log}
}

// ConvertToMul writes the flat contents of the container src to dst.
func ConvertToMul(src, dst string, sink progress.Sink) error {
	_, err := NewExtractor(zerolog.Nop()).Convert(src, dst, sink)
	return err
}

// UncompressedSize returns the number of bytes a conversion of path
// produces, as summed over the unique table entries.
func UncompressedSize(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &store.StorageIOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()
	ft, err := ReadFileTable(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return ft.TotalUncompressed(), nil
}

// Convert writes the flat contents of the container src to dst and returns
// the number of bytes written. The entry order is resolved before dst is
// created, so a table missing an entry leaves dst untouched. Bytes written
// before a later failure stay in dst.
func (x *Extractor) Convert(src, dst string, sink progress.Sink) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, &store.StorageIOError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	pattern := PatternFor(src)
	ft, entries, err := x.resolve(in, pattern)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, &store.StorageIOError{Op: "create", Path: dst, Err: err}
	}
	bw := bufio.NewWriterSize(out, 64*1024)
	n, err := x.copyEntries(in, bw, ft, entries, sink)
	// Buffered bytes are flushed on failure too; partial output stays.
	if ferr := bw.Flush(); ferr != nil && err == nil {
		err = &store.StorageIOError{Op: "write", Path: dst, Err: ferr}
	}
	if err == nil {
		if serr := out.Sync(); serr != nil {
			err = &store.StorageIOError{Op: "sync", Path: dst, Err: serr}
		}
	}
	if cerr := out.Close(); cerr != nil && err == nil {
		err = &store.StorageIOError{Op: "close", Path: dst, Err: cerr}
	}
	if err != nil {
		return n, fmt.Errorf("convert %s: %w", src, err)
	}
	x.log.Info().
		Str("src", src).
		Str("dst", dst).
		Int("entries", len(entries)).
		Int64("bytes", n).
		Msg("uop container converted")
	return n, nil
}

// Extract writes the flat contents of the container r, whose entry names
// follow pattern, to w.
func (x *Extractor) Extract(r io.ReaderAt, w io.Writer, pattern string, sink progress.Sink) (int64, error) {
	ft, entries, err := x.resolve(r, pattern)
	if err != nil {
		return 0, err
	}
	return x.copyEntries(r, w, ft, entries, sink)
}

func (x *Extractor) resolve(r io.ReaderAt, pattern string) (*FileTable, []Entry, error) {
	ft, err := ReadFileTable(r)
	if err != nil {
		return nil, nil, err
	}
	if ft.NextTable != 0 {
		x.log.Warn().
			Uint64("next_table", ft.NextTable).
			Int("entries", ft.Len()).
			Msg("container has chained file tables; only the first is read")
	}

	total := int(ft.Header.TotalFiles)
	if total > ft.Len() {
		return nil, nil, fmt.Errorf("header declares %d files, table holds %d: %w", total, ft.Len(), ErrCorruptArchive)
	}
	entries := make([]Entry, total)
	for i, h := range MapHashes(total, pattern) {
		e, ok := ft.Lookup(h)
		if !ok {
			return nil, nil, fmt.Errorf("entry %s (%#016x) of %d not in file table of %d: %w",
				EntryName(pattern, i), h, total, ft.Len(), ErrCorruptArchive)
		}
		entries[i] = e
	}
	x.log.Debug().
		Str("pattern", pattern).
		Int("files", total).
		Int("records", ft.Records()).
		Uint64("bytes", ft.TotalUncompressed()).
		Msg("file table resolved")
	return ft, entries, nil
}

func (x *Extractor) copyEntries(r io.ReaderAt, w io.Writer, ft *FileTable, entries []Entry, sink progress.Sink) (int64, error) {
	tracker := progress.NewTracker(ft.TotalUncompressed(), sink)
	pw := &trackingWriter{w: w, tracker: tracker}
	for i, e := range entries {
		if err := copyEntry(r, pw, e); err != nil {
			tracker.Halt()
			return int64(tracker.Done()), fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return int64(tracker.Done()), nil
}

func copyEntry(r io.ReaderAt, w io.Writer, e Entry) error {
	data := io.NewSectionReader(r, e.PayloadOffset(), int64(e.StoredSize()))
	want := int64(e.UncompressedSize)

	var src io.Reader
	switch e.Compression {
	case CompressionNone:
		src = data
	case CompressionZlib:
		zr, err := zlib.NewReader(data)
		if err != nil {
			return fmt.Errorf("zlib header: %v: %w", err, ErrCorruptArchive)
		}
		defer zr.Close()
		src = zr
	default:
		return fmt.Errorf("method %d: %w", e.Compression, ErrUnsupportedCompression)
	}

	n, err := io.CopyN(w, src, want)
	var werr *writeError
	switch {
	case errors.As(err, &werr):
		return &store.StorageIOError{Op: "write", Err: werr.err}
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("truncated at %d of %d bytes: %w", n, want, ErrCorruptArchive)
	case err != nil && e.Compression == CompressionZlib:
		return fmt.Errorf("inflate: %v: %w", err, ErrCorruptArchive)
	case err != nil:
		return &store.StorageIOError{Op: "read", Err: err}
	}
	return nil
}

// trackingWriter feeds the progress tracker and tags write failures so they
// can be told apart from read failures after io.CopyN.
type trackingWriter struct {
	w       io.Writer
	tracker *progress.Tracker
}

type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.tracker.Add(n)
	if err != nil {
		return n, &writeError{err: err}
	}
	return n, nil
}
