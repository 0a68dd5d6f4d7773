package uop

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/rs/zerolog"
)

type testFile struct {
	name string // synthetic entry name; its hash is the checksum
	data []byte
	meta int  // metadata bytes stored ahead of the payload
	zlib bool // store deflated
}

const testTableOffset = 32

// buildContainer lays out a header, one file table holding files in the
// given order followed by a terminal record, then the entry data.
func buildContainer(t *testing.T, totalFiles int, files []testFile) []byte {
	t.Helper()
	dataStart := testTableOffset + TableHeaderSize + (len(files)+1)*EntrySize
	out := make([]byte, dataStart)
	encodeHeader(out, Header{
		Magic:         Magic,
		Version:       5,
		Signature:     0xFD23EC43,
		TableOffset:   testTableOffset,
		TableCapacity: 100,
		TotalFiles:    uint32(totalFiles),
	})
	out[testTableOffset] = byte(len(files))

	for i, f := range files {
		stored := f.data
		comp := CompressionNone
		if f.zlib {
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			if _, err := zw.Write(f.data); err != nil {
				t.Fatal(err)
			}
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}
			stored = buf.Bytes()
			comp = CompressionZlib
		}
		e := Entry{
			DataOffset:       uint64(len(out)),
			MetadataSize:     uint32(f.meta),
			CompressedSize:   uint32(len(stored)),
			UncompressedSize: uint32(len(f.data)),
			PathChecksum:     HashFileName(f.name),
			DataHash:         0x1234,
			Compression:      comp,
		}
		encodeEntry(out[testTableOffset+TableHeaderSize+i*EntrySize:], e)
		out = append(out, bytes.Repeat([]byte{0xCC}, f.meta)...)
		out = append(out, stored...)
	}
	return out
}

func TestHashGoldenVectors(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"", 0xDEADBEEF00000000},
		{"a", 0x582647AC58D68708},
		{"abc", 0x3C03BE9E0E397631},
		{"hello world!", 0x712979E74B8946DB},
		{"hello world!!", 0x3A2153A1BDFD2524},
		{"Four score and seven years ago", 0xCE7226E617770551},
		{"build/x/00000000.dat", 0x2CD6066C6439CF2E},
		{"build/map0legacymul/00000000.dat", 0xDBB7AFA433A3764B},
		{"build/map0legacymul/00000001.dat", 0xAB25A3A10840B756},
		{"build/map0legacymul/00000002.dat", 0xED50467774AF75E7},
		{"build/map0legacymul/00000113.dat", 0xBB7D9A7633F09887},
		{"build/map1legacymul/00000000.dat", 0x2D7E135A72908CB9},
	}
	for _, tt := range tests {
		if got := HashFileName(tt.in); got != tt.want {
			t.Errorf("HashFileName(%q) = %#016x, want %#016x", tt.in, got, tt.want)
		}
	}
}

func TestMapHashes(t *testing.T) {
	want := []uint64{0x65FF7D2ABDA7533E, 0x4800E6EACF6381DA, 0x201AE6606962ADE0}
	got := MapHashes(3, "pattern")
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hash %d = %#016x, want %#016x", i, got[i], want[i])
		}
	}
	if n := EntryName("map2legacymul", 113); n != "build/map2legacymul/00000113.dat" {
		t.Errorf("EntryName = %q", n)
	}
	if p := PatternFor(filepath.Join("client", "Map0LegacyMUL.uop")); p != "map0legacymul" {
		t.Errorf("PatternFor = %q, want map0legacymul", p)
	}
}

func threeFiles() ([]testFile, []byte) {
	a := bytes.Repeat([]byte("A"), 300)
	b := bytes.Repeat([]byte("Bb"), 50)
	c := []byte("ccc")
	files := []testFile{
		{name: EntryName("map0legacymul", 2), data: c, meta: 12},
		{name: EntryName("map0legacymul", 0), data: a},
		{name: EntryName("map0legacymul", 1), data: b, meta: 4},
	}
	return files, append(append(append([]byte{}, a...), b...), c...)
}

func TestExtractResolvesNameOrder(t *testing.T) {
	files, want := threeFiles()
	container := buildContainer(t, 3, files)

	var out bytes.Buffer
	var pcts []uint32
	n, err := NewExtractor(zerolog.Nop()).Extract(bytes.NewReader(container), &out, "map0legacymul", func(p uint32) {
		pcts = append(pcts, p)
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if n != int64(len(want)) || !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("extracted %d bytes %q, want %q", n, out.Bytes(), want)
	}
	if len(pcts) == 0 || pcts[len(pcts)-1] != 100 {
		t.Errorf("progress = %v, want ending at 100", pcts)
	}
	for i := 1; i < len(pcts); i++ {
		if pcts[i] <= pcts[i-1] {
			t.Fatalf("progress not increasing: %v", pcts)
		}
	}
}

func TestReadFileTableDedupes(t *testing.T) {
	files, _ := threeFiles()
	files = append(files, testFile{name: files[1].name, data: []byte("dup")})
	ft, err := ReadFileTable(bytes.NewReader(buildContainer(t, 3, files)))
	if err != nil {
		t.Fatal(err)
	}
	if ft.Len() != 3 || ft.Records() != 4 {
		t.Errorf("Len = %d Records = %d, want 3 and 4", ft.Len(), ft.Records())
	}
	if ft.TotalUncompressed() != 403 {
		t.Errorf("TotalUncompressed = %d, want 403", ft.TotalUncompressed())
	}
	e, ok := ft.Lookup(HashFileName(files[1].name))
	if !ok || e.UncompressedSize != 300 {
		t.Errorf("duplicate checksum kept %+v, want first record", e)
	}
	if ft.Declared != 4 || ft.NextTable != 0 {
		t.Errorf("block header = %d/%d, want 4/0", ft.Declared, ft.NextTable)
	}
	if got := ft.Entries()[0].MetadataSize; got != 12 {
		t.Errorf("first entry metadata = %d, want 12 (table order)", got)
	}
}

func TestExtractZlibEntry(t *testing.T) {
	plain := bytes.Repeat([]byte("land block "), 200)
	container := buildContainer(t, 2, []testFile{
		{name: EntryName("map5legacymul", 1), data: []byte("tail")},
		{name: EntryName("map5legacymul", 0), data: plain, meta: 8, zlib: true},
	})

	var out bytes.Buffer
	if _, err := NewExtractor(zerolog.Nop()).Extract(bytes.NewReader(container), &out, "map5legacymul", nil); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := append(append([]byte{}, plain...), "tail"...)
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("zlib entry not inflated correctly: got %d bytes", out.Len())
	}
}

func TestExtractMissingEntry(t *testing.T) {
	files, _ := threeFiles()
	container := buildContainer(t, 4, files)

	var out bytes.Buffer
	_, err := NewExtractor(zerolog.Nop()).Extract(bytes.NewReader(container), &out, "map0legacymul", nil)
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("err = %v, want ErrCorruptArchive", err)
	}
	if out.Len() != 0 {
		t.Errorf("wrote %d bytes before detecting the missing entry", out.Len())
	}
}

func TestExtractUnsupportedCompression(t *testing.T) {
	container := buildContainer(t, 1, []testFile{{name: EntryName("m", 0), data: []byte("x")}})
	// Compression field of the first record.
	container[testTableOffset+TableHeaderSize+32] = 3

	_, err := NewExtractor(zerolog.Nop()).Extract(bytes.NewReader(container), &bytes.Buffer{}, "m", nil)
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Fatalf("err = %v, want ErrUnsupportedCompression", err)
	}
}

func TestExtractTruncatedData(t *testing.T) {
	container := buildContainer(t, 1, []testFile{{name: EntryName("m", 0), data: make([]byte, 100)}})
	container = container[:len(container)-10]

	var out bytes.Buffer
	var last uint32
	_, err := NewExtractor(zerolog.Nop()).Extract(bytes.NewReader(container), &out, "m", func(p uint32) { last = p })
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("err = %v, want ErrCorruptArchive", err)
	}
	if out.Len() != 90 {
		t.Errorf("partial output = %d bytes, want 90 kept", out.Len())
	}
	if last != 90 {
		t.Errorf("last progress = %d, want 90", last)
	}
}

func TestReadFileTableCorrupt(t *testing.T) {
	files, _ := threeFiles()
	good := buildContainer(t, 3, files)

	badMagic := append([]byte{}, good...)
	badMagic[0] = 'X'

	// Cut inside the terminal record.
	termAt := testTableOffset + TableHeaderSize + len(files)*EntrySize
	unterminated := append([]byte{}, good[:termAt+10]...)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", good[:20]},
		{"bad magic", badMagic},
		{"no table", good[:testTableOffset+4]},
		{"unterminated", unterminated},
	}
	for _, tt := range tests {
		if _, err := ReadFileTable(bytes.NewReader(tt.data)); !errors.Is(err, ErrCorruptArchive) {
			t.Errorf("%s: err = %v, want ErrCorruptArchive", tt.name, err)
		}
	}
}

func TestConvertToMul(t *testing.T) {
	dir := t.TempDir()
	files, want := threeFiles()
	src := filepath.Join(dir, "map0LegacyMUL.uop")
	if err := os.WriteFile(src, buildContainer(t, 3, files), 0644); err != nil {
		t.Fatal(err)
	}

	size, err := UncompressedSize(src)
	if err != nil {
		t.Fatal(err)
	}
	if size != uint64(len(want)) {
		t.Errorf("UncompressedSize = %d, want %d", size, len(want))
	}

	dst := filepath.Join(dir, "map0.mul")
	if err := ConvertToMul(src, dst, nil); err != nil {
		t.Fatalf("ConvertToMul: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("converted file mismatch")
	}
}

func TestConvertCorruptLeavesNoDestination(t *testing.T) {
	dir := t.TempDir()
	files, _ := threeFiles()
	src := filepath.Join(dir, "map0LegacyMUL.uop")
	if err := os.WriteFile(src, buildContainer(t, 5, files), 0644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "map0.mul")
	if err := ConvertToMul(src, dst, nil); !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("err = %v, want ErrCorruptArchive", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("destination exists after a failed resolve")
	}
}

func TestConvertMissingSource(t *testing.T) {
	err := ConvertToMul(filepath.Join(t.TempDir(), "nope.uop"), filepath.Join(t.TempDir(), "out"), nil)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
