package store

import "fmt"

// BlockIndex is the staidx table: one 12-byte record per block, mirrored in
// memory. The mirror is authoritative for reads.
type BlockIndex struct {
	mirror []byte
	file   *backingFile
}

// OpenBlockIndex loads the index file at path and keeps it open for writes.
// A trailing partial record is ignored.
func OpenBlockIndex(path string, sync bool) (*BlockIndex, error) {
	file, data, err := openBacking(path, sync)
	if err != nil {
		return nil, err
	}
	return &BlockIndex{mirror: data, file: file}, nil
}

// Blocks returns the number of complete records in the index.
func (ix *BlockIndex) Blocks() uint32 {
	return uint32(len(ix.mirror) / IndexRecordSize)
}

func (ix *BlockIndex) offset(blockNum uint32) (int64, error) {
	if blockNum >= ix.Blocks() {
		return 0, fmt.Errorf("index block %d of %d: %w", blockNum, ix.Blocks(), ErrBlockOutOfRange)
	}
	return int64(blockNum) * IndexRecordSize, nil
}

// Entry returns the decoded record for blockNum.
func (ix *BlockIndex) Entry(blockNum uint32) (IndexEntry, error) {
	off, err := ix.offset(blockNum)
	if err != nil {
		return IndexEntry{}, err
	}
	return decodeIndexEntry(ix.mirror[off : off+IndexRecordSize]), nil
}

// Get returns the lookup and length fields for blockNum.
func (ix *BlockIndex) Get(blockNum uint32) (lookup, length uint32, err error) {
	e, err := ix.Entry(blockNum)
	return e.Lookup, e.Length, err
}

// SetLength rewrites the length field in memory and on disk. It does not flush.
func (ix *BlockIndex) SetLength(blockNum, length uint32) error {
	return ix.setField(blockNum, 4, length)
}

// SetLookup rewrites the lookup field in memory and on disk. It does not flush.
func (ix *BlockIndex) SetLookup(blockNum, lookup uint32) error {
	return ix.setField(blockNum, 0, lookup)
}

func (ix *BlockIndex) setField(blockNum uint32, field int64, v uint32) error {
	off, err := ix.offset(blockNum)
	if err != nil {
		return err
	}
	var buf [4]byte
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	if err := ix.file.writeAt(buf[:], off+field); err != nil {
		return err
	}
	copy(ix.mirror[off+field:off+field+4], buf[:])
	return nil
}

// Set updates both fields of a record, writing only the fields that changed
// (length first, then lookup), and flushes.
func (ix *BlockIndex) Set(blockNum, lookup, length uint32) error {
	cur, err := ix.Entry(blockNum)
	if err != nil {
		return err
	}
	if cur.Length != length {
		if err := ix.SetLength(blockNum, length); err != nil {
			return err
		}
	}
	if cur.Lookup != lookup {
		if err := ix.SetLookup(blockNum, lookup); err != nil {
			return err
		}
	}
	return ix.Flush()
}

// Flush pushes pending index writes to disk.
func (ix *BlockIndex) Flush() error {
	return ix.file.flush()
}

// Close flushes and closes the index file.
func (ix *BlockIndex) Close() error {
	return ix.file.close()
}
