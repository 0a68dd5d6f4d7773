package store

import "fmt"

// BlockPool is the statics arena: a byte buffer that only grows, mirrored to
// the statics file. Payloads are addressed by (offset, length) handles kept
// in the BlockIndex.
type BlockPool struct {
	mem      []byte
	capacity uint32
	file     *backingFile
}

// OpenBlockPool loads the statics file at path. capacity bounds the pool;
// zero selects StaticsMemorySize.
func OpenBlockPool(path string, capacity uint32, sync bool) (*BlockPool, error) {
	if capacity == 0 {
		capacity = StaticsMemorySize
	}
	file, data, err := openBacking(path, sync)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > uint64(capacity) {
		file.close()
		return nil, fmt.Errorf("open %s: %d bytes: %w", path, len(data), ErrCapacityExceeded)
	}
	return &BlockPool{mem: data, capacity: capacity, file: file}, nil
}

// End returns the offset one past the last written byte.
func (p *BlockPool) End() uint32 {
	return uint32(len(p.mem))
}

// Capacity returns the maximum pool size in bytes.
func (p *BlockPool) Capacity() uint32 {
	return p.capacity
}

// Fits reports whether n more bytes can be appended.
func (p *BlockPool) Fits(n int) bool {
	return uint64(len(p.mem))+uint64(n) <= uint64(p.capacity)
}

// Read returns a copy of length bytes at offset. ok is false when the handle
// does not describe a payload: offset outside the pool, length 0 or the
// empty sentinel, or a range past the written end.
func (p *BlockPool) Read(offset, length uint32) (data []byte, ok bool) {
	if offset >= p.capacity || length == 0 || length == EmptyLength {
		return nil, false
	}
	end := uint64(offset) + uint64(length)
	if end > uint64(len(p.mem)) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, p.mem[offset:end])
	return out, true
}

// Append writes b at the pool end, advances the end and flushes. It returns
// the offset b was written at.
func (p *BlockPool) Append(b []byte) (uint32, error) {
	if !p.Fits(len(b)) {
		return 0, fmt.Errorf("append %d bytes at %d (capacity %d): %w", len(b), len(p.mem), p.capacity, ErrCapacityExceeded)
	}
	off := uint32(len(p.mem))
	if err := p.file.writeAt(b, int64(off)); err != nil {
		return 0, err
	}
	p.mem = append(p.mem, b...)
	return off, p.file.flush()
}

// Overwrite writes b over already-written pool bytes at offset and flushes.
func (p *BlockPool) Overwrite(offset uint32, b []byte) error {
	if uint64(offset)+uint64(len(b)) > uint64(len(p.mem)) {
		return fmt.Errorf("overwrite %d bytes at %d (end %d): %w", len(b), offset, len(p.mem), ErrBlockOutOfRange)
	}
	if err := p.file.writeAt(b, int64(offset)); err != nil {
		return err
	}
	copy(p.mem[offset:], b)
	return p.file.flush()
}

// Flush pushes pending pool writes to disk.
func (p *BlockPool) Flush() error {
	return p.file.flush()
}

// Close flushes and closes the statics file.
func (p *BlockPool) Close() error {
	return p.file.close()
}
