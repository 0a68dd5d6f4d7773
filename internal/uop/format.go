// Package uop reads UOP ("MYP") containers and flattens legacy map
// containers back into the map<N>.mul layout.
package uop

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Magic is "MYP\0" read as a little-endian u32.
	Magic uint32 = 0x0050594D

	// HeaderSize covers magic, version, signature, first table offset,
	// table capacity and file count.
	HeaderSize = 28

	// TableHeaderSize is the [fileCount u32][nextTable u64] block header.
	TableHeaderSize = 12

	// EntrySize is the size of one file table record.
	EntrySize = 34
)

// Compression methods stored in Entry.Compression.
const (
	CompressionNone uint16 = 0
	CompressionZlib uint16 = 1
)

var (
	ErrCorruptArchive         = errors.New("uop: corrupt archive")
	ErrUnsupportedCompression = errors.New("uop: unsupported compression")
)

// Header is the fixed container header.
type Header struct {
	Magic         uint32
	Version       uint32
	Signature     uint32
	TableOffset   uint64
	TableCapacity uint32
	TotalFiles    uint32
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("header: %d bytes: %w", len(b), ErrCorruptArchive)
	}
	h := Header{
		Magic:         binary.LittleEndian.Uint32(b[0:4]),
		Version:       binary.LittleEndian.Uint32(b[4:8]),
		Signature:     binary.LittleEndian.Uint32(b[8:12]),
		TableOffset:   binary.LittleEndian.Uint64(b[12:20]),
		TableCapacity: binary.LittleEndian.Uint32(b[20:24]),
		TotalFiles:    binary.LittleEndian.Uint32(b[24:28]),
	}
	if h.Magic != Magic {
		return h, fmt.Errorf("header: magic %#08x: %w", h.Magic, ErrCorruptArchive)
	}
	return h, nil
}

func encodeHeader(b []byte, h Header) {
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.Signature)
	binary.LittleEndian.PutUint64(b[12:20], h.TableOffset)
	binary.LittleEndian.PutUint32(b[20:24], h.TableCapacity)
	binary.LittleEndian.PutUint32(b[24:28], h.TotalFiles)
}

// Entry is one decoded file table record.
type Entry struct {
	DataOffset       uint64
	MetadataSize     uint32
	CompressedSize   uint32
	UncompressedSize uint32
	PathChecksum     uint64
	DataHash         uint32
	Compression      uint16
}

func decodeEntry(b []byte) Entry {
	return Entry{
		DataOffset:       binary.LittleEndian.Uint64(b[0:8]),
		MetadataSize:     binary.LittleEndian.Uint32(b[8:12]),
		CompressedSize:   binary.LittleEndian.Uint32(b[12:16]),
		UncompressedSize: binary.LittleEndian.Uint32(b[16:20]),
		PathChecksum:     binary.LittleEndian.Uint64(b[20:28]),
		DataHash:         binary.LittleEndian.Uint32(b[28:32]),
		Compression:      binary.LittleEndian.Uint16(b[32:34]),
	}
}

func encodeEntry(b []byte, e Entry) {
	binary.LittleEndian.PutUint64(b[0:8], e.DataOffset)
	binary.LittleEndian.PutUint32(b[8:12], e.MetadataSize)
	binary.LittleEndian.PutUint32(b[12:16], e.CompressedSize)
	binary.LittleEndian.PutUint32(b[16:20], e.UncompressedSize)
	binary.LittleEndian.PutUint64(b[20:28], e.PathChecksum)
	binary.LittleEndian.PutUint32(b[28:32], e.DataHash)
	binary.LittleEndian.PutUint16(b[32:34], e.Compression)
}

// terminal reports whether the record ends the table. Unused slots are
// zero-filled, so either a zero offset or a zero checksum marks the end.
func (e Entry) terminal() bool {
	return e.PathChecksum == 0 || e.DataOffset == 0
}

// PayloadOffset is where the entry's data starts, past its metadata.
func (e Entry) PayloadOffset() int64 {
	return int64(e.DataOffset) + int64(e.MetadataSize)
}

// StoredSize is the number of bytes the entry occupies after its metadata.
func (e Entry) StoredSize() uint32 {
	if e.Compression == CompressionNone {
		return e.UncompressedSize
	}
	return e.CompressedSize
}
