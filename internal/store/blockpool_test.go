package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestPool(t *testing.T, content []byte, capacity uint32) *BlockPool {
	t.Helper()
	path := filepath.Join(t.TempDir(), StaticsFileName(0))
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	p, err := OpenBlockPool(path, capacity, false)
	if err != nil {
		t.Fatalf("OpenBlockPool: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestBlockPoolReadHandles(t *testing.T) {
	p := openTestPool(t, []byte("abcdefgh"), 100)

	tests := []struct {
		name   string
		offset uint32
		length uint32
		want   string
		ok     bool
	}{
		{"whole", 0, 8, "abcdefgh", true},
		{"middle", 2, 3, "cde", true},
		{"zero length", 2, 0, "", false},
		{"length sentinel", 0, EmptyLength, "", false},
		{"lookup sentinel", EmptyLookup, 4, "", false},
		{"past capacity", 100, 1, "", false},
		{"past end", 6, 4, "", false},
	}
	for _, tt := range tests {
		got, ok := p.Read(tt.offset, tt.length)
		if ok != tt.ok || string(got) != tt.want {
			t.Errorf("%s: Read(%d, %d) = %q, %v; want %q, %v", tt.name, tt.offset, tt.length, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBlockPoolAppendAndOverwrite(t *testing.T) {
	p := openTestPool(t, nil, 10)

	off, err := p.Append([]byte("hello"))
	if err != nil || off != 0 {
		t.Fatalf("Append = %d, %v; want 0, nil", off, err)
	}
	off, err = p.Append([]byte("world"))
	if err != nil || off != 5 {
		t.Fatalf("Append = %d, %v; want 5, nil", off, err)
	}
	if _, err := p.Append([]byte("!")); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Append past capacity: err = %v", err)
	}
	if err := p.Overwrite(3, []byte("LOWO")); err != nil {
		t.Fatal(err)
	}
	if got, _ := p.Read(0, 10); string(got) != "helLOWOrld" {
		t.Errorf("pool = %q, want helLOWOrld", got)
	}
	if err := p.Overwrite(8, []byte("xyz")); !errors.Is(err, ErrBlockOutOfRange) {
		t.Errorf("Overwrite past end: err = %v, want ErrBlockOutOfRange", err)
	}
}

func TestOpenBlockPoolOverCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statics0.mul")
	if err := os.WriteFile(path, make([]byte, 32), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenBlockPool(path, 16, false); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestBlockIndexSetWritesChangedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexFileName(0))
	rec := make([]byte, 2*IndexRecordSize)
	encodeIndexEntry(rec[0:], IndexEntry{Lookup: 1, Length: 2, Extra: 0xABCD})
	encodeIndexEntry(rec[IndexRecordSize:], EmptyIndexEntry)
	if err := os.WriteFile(path, rec, 0644); err != nil {
		t.Fatal(err)
	}

	ix, err := OpenBlockIndex(path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()

	if err := ix.Set(0, 40, 8); err != nil {
		t.Fatal(err)
	}
	lookup, length, err := ix.Get(0)
	if err != nil || lookup != 40 || length != 8 {
		t.Fatalf("Get(0) = %d, %d, %v; want 40, 8, nil", lookup, length, err)
	}

	disk, _ := os.ReadFile(path)
	e := decodeIndexEntry(disk)
	if e.Lookup != 40 || e.Length != 8 || e.Extra != 0xABCD {
		t.Errorf("disk record = %+v, want reserved bytes preserved", e)
	}
	if _, _, err := ix.Get(2); !errors.Is(err, ErrBlockOutOfRange) {
		t.Errorf("Get(2): err = %v, want ErrBlockOutOfRange", err)
	}
}
