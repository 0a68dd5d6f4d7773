package store

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when a statics append would grow the
	// pool past its configured capacity. The store is left unchanged.
	ErrCapacityExceeded = errors.New("statics pool capacity exceeded")

	// ErrBlockOutOfRange is returned for block numbers or pool ranges that lie
	// outside the files backing the store.
	ErrBlockOutOfRange = errors.New("block out of range")

	// ErrBadBlockSize is returned when a land block is not LandBlockSize bytes.
	ErrBadBlockSize = errors.New("bad land block size")

	// ErrLocked is returned when another session already owns the map.
	ErrLocked = errors.New("map is locked by another session")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// StorageIOError reports a failed open, read, write or flush of a backing file.
// Bytes flushed before the failure are not rolled back.
type StorageIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageIOError{Op: op, Path: path, Err: err}
}

// MapStore is the capability set the client layer needs from an open map.
type MapStore interface {
	// ReadStatics returns a copy of the block's statics payload. ok is false
	// when the block has no statics.
	ReadStatics(blockNum uint32) (data []byte, ok bool)
	// WriteStatics replaces the block's statics payload. An empty payload
	// clears the block.
	WriteStatics(blockNum uint32, payload []byte) error
	// ReadLand returns a copy of the 196-byte land block.
	ReadLand(blockNum uint32) ([]byte, error)
	// WriteLand replaces the 196-byte land block.
	WriteLand(blockNum uint32, block []byte) error
	Stats() Stats
	Flush() error
	Close() error
}

var _ MapStore = (*Session)(nil)
