package store

import "fmt"

// LandStore serves the fixed-size land blocks of a map file.
type LandStore struct {
	mirror []byte
	file   *backingFile
}

// OpenLandStore loads the map file at path.
func OpenLandStore(path string, sync bool) (*LandStore, error) {
	file, data, err := openBacking(path, sync)
	if err != nil {
		return nil, err
	}
	return &LandStore{mirror: data, file: file}, nil
}

// Blocks returns the number of complete land blocks.
func (l *LandStore) Blocks() uint32 {
	return uint32(len(l.mirror) / LandBlockSize)
}

func (l *LandStore) offset(blockNum uint32) (int64, error) {
	if blockNum >= l.Blocks() {
		return 0, fmt.Errorf("land block %d of %d: %w", blockNum, l.Blocks(), ErrBlockOutOfRange)
	}
	return int64(blockNum) * LandBlockSize, nil
}

// ReadBlock returns a copy of land block blockNum.
func (l *LandStore) ReadBlock(blockNum uint32) ([]byte, error) {
	off, err := l.offset(blockNum)
	if err != nil {
		return nil, err
	}
	out := make([]byte, LandBlockSize)
	copy(out, l.mirror[off:off+LandBlockSize])
	return out, nil
}

// WriteBlock replaces land block blockNum and flushes.
func (l *LandStore) WriteBlock(blockNum uint32, block []byte) error {
	if len(block) != LandBlockSize {
		return fmt.Errorf("land block %d: got %d bytes, want %d: %w", blockNum, len(block), LandBlockSize, ErrBadBlockSize)
	}
	off, err := l.offset(blockNum)
	if err != nil {
		return err
	}
	if err := l.file.writeAt(block, off); err != nil {
		return err
	}
	copy(l.mirror[off:off+LandBlockSize], block)
	return l.file.flush()
}

// Close flushes and closes the map file.
func (l *LandStore) Close() error {
	return l.file.close()
}
