package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// LandBlockSize is the size of one 8x8 land block: a 4-byte header
	// followed by 64 three-byte cells (tile id u16, altitude i8).
	LandBlockSize = 196

	// LandBlockHeaderSize is the size of the land block header.
	LandBlockHeaderSize = 4

	// LandCellsPerBlock is the number of cells in a land block.
	LandCellsPerBlock = 64

	// IndexRecordSize is the stride of one staidx record.
	IndexRecordSize = 12

	// EmptyLookup marks an index record without a pool payload.
	EmptyLookup uint32 = 0xFFFFFFFF

	// EmptyLength is the legacy "no statics" length. Zero means the same.
	EmptyLength uint32 = 0xFFFFFFFF

	// StaticsMemorySize is the default statics pool capacity in bytes.
	StaticsMemorySize = 200000000

	// defaultLandTile is the tile id used to fill new maps (0x0244, water).
	defaultLandTile uint16 = 0x0244
)

// MapFileName returns the land file name for a map number.
func MapFileName(mapNumber int) string {
	return fmt.Sprintf("map%d.mul", mapNumber)
}

// IndexFileName returns the staidx file name for a map number.
func IndexFileName(mapNumber int) string {
	return fmt.Sprintf("staidx%d.mul", mapNumber)
}

// StaticsFileName returns the statics pool file name for a map number.
func StaticsFileName(mapNumber int) string {
	return fmt.Sprintf("statics%d.mul", mapNumber)
}

// MapPaths holds the three file paths of one map.
type MapPaths struct {
	Map     string
	Index   string
	Statics string
}

// PathsFor returns the file paths of map mapNumber inside dir.
func PathsFor(dir string, mapNumber int) MapPaths {
	return MapPaths{
		Map:     filepath.Join(dir, MapFileName(mapNumber)),
		Index:   filepath.Join(dir, IndexFileName(mapNumber)),
		Statics: filepath.Join(dir, StaticsFileName(mapNumber)),
	}
}

// IndexEntry is one decoded staidx record.
type IndexEntry struct {
	Lookup uint32
	Length uint32
	Extra  uint32
}

// HasPayload reports whether the entry references pool bytes.
func (e IndexEntry) HasPayload() bool {
	return e.Lookup != EmptyLookup && e.Length != 0 && e.Length != EmptyLength
}

// EmptyIndexEntry is the record written for blocks without statics.
var EmptyIndexEntry = IndexEntry{Lookup: EmptyLookup, Length: 0}

func encodeIndexEntry(buf []byte, e IndexEntry) {
	binary.LittleEndian.PutUint32(buf[0:4], e.Lookup)
	binary.LittleEndian.PutUint32(buf[4:8], e.Length)
	binary.LittleEndian.PutUint32(buf[8:12], e.Extra)
}

func decodeIndexEntry(buf []byte) IndexEntry {
	return IndexEntry{
		Lookup: binary.LittleEndian.Uint32(buf[0:4]),
		Length: binary.LittleEndian.Uint32(buf[4:8]),
		Extra:  binary.LittleEndian.Uint32(buf[8:12]),
	}
}

// defaultLandBlock is the template every cell of a new map starts from.
var defaultLandBlock = func() [LandBlockSize]byte {
	var b [LandBlockSize]byte
	for i := 0; i < LandCellsPerBlock; i++ {
		off := LandBlockHeaderSize + i*3
		binary.LittleEndian.PutUint16(b[off:off+2], defaultLandTile)
		b[off+2] = 0
	}
	return b
}()

// DefaultLandBlock returns a copy of the template land block.
func DefaultLandBlock() []byte {
	b := defaultLandBlock
	return b[:]
}

// backingFile is an open file that mirrors an in-memory buffer.
type backingFile struct {
	f    *os.File
	path string
	sync bool
}

func openBacking(path string, sync bool) (*backingFile, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, ioError("read", path, err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, ioError("open", path, err)
	}
	return &backingFile{f: f, path: path, sync: sync}, data, nil
}

func (b *backingFile) writeAt(p []byte, off int64) error {
	if _, err := b.f.WriteAt(p, off); err != nil {
		return ioError("write", b.path, err)
	}
	return nil
}

// flush pushes written bytes to stable storage when sync is enabled.
// os.File writes are unbuffered, so without sync there is nothing to do.
func (b *backingFile) flush() error {
	if !b.sync {
		return nil
	}
	return ioError("sync", b.path, b.f.Sync())
}

func (b *backingFile) close() error {
	if b == nil || b.f == nil {
		return nil
	}
	err := b.flush()
	if cerr := b.f.Close(); err == nil {
		err = ioError("close", b.path, cerr)
	}
	b.f = nil
	return err
}
