package store

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

// openTestSession creates a w x h grid for map 0 in a temp dir and opens it.
func openTestSession(t *testing.T, w, h uint32, capacity uint32) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	if _, err := CreateGrid(dir, 0, w, h); err != nil {
		t.Fatalf("CreateGrid: %v", err)
	}
	s, err := OpenSession(dir, 0, Options{StaticsCapacity: capacity, NoSync: true})
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func payload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestStaticsRoundTrip(t *testing.T) {
	s, _ := openTestSession(t, 4, 4, 0)

	for _, n := range []int{10, 35, 4, 70, 1} {
		p := payload(n, byte(n))
		if err := s.WriteStatics(5, p); err != nil {
			t.Fatalf("WriteStatics(%d bytes): %v", n, err)
		}
		got, ok := s.ReadStatics(5)
		if !ok {
			t.Fatalf("ReadStatics after %d-byte write: absent", n)
		}
		if !bytes.Equal(got, p) {
			t.Fatalf("ReadStatics after %d-byte write = %x, want %x", n, got, p)
		}
	}
}

func TestStaticsPlacementPolicy(t *testing.T) {
	s, _ := openTestSession(t, 2, 2, 0)

	if err := s.WriteStatics(3, payload(20, 1)); err != nil {
		t.Fatal(err)
	}
	first, _ := s.index.Entry(3)
	if first.Lookup != 0 || first.Length != 20 {
		t.Fatalf("first write entry = %+v, want lookup 0 length 20", first)
	}
	if s.pool.End() != 20 {
		t.Fatalf("pool end = %d, want 20", s.pool.End())
	}

	// Same length: rewritten in place.
	if err := s.WriteStatics(3, payload(20, 2)); err != nil {
		t.Fatal(err)
	}
	// Shorter: rewritten in place, pool does not grow.
	if err := s.WriteStatics(3, payload(12, 3)); err != nil {
		t.Fatal(err)
	}
	e, _ := s.index.Entry(3)
	if e.Lookup != 0 || e.Length != 12 {
		t.Fatalf("after shrink entry = %+v, want lookup 0 length 12", e)
	}
	if s.pool.End() != 20 {
		t.Fatalf("pool end after in-place writes = %d, want 20", s.pool.End())
	}

	// Longer than the current length: relocated to the old pool end.
	if err := s.WriteStatics(3, payload(13, 4)); err != nil {
		t.Fatal(err)
	}
	e, _ = s.index.Entry(3)
	if e.Lookup != 20 || e.Length != 13 {
		t.Fatalf("after grow entry = %+v, want lookup 20 length 13", e)
	}
	if s.pool.End() != 33 {
		t.Fatalf("pool end after append = %d, want 33", s.pool.End())
	}

	st := s.Stats()
	if st.StaticsAppends != 2 || st.StaticsReuses != 2 {
		t.Errorf("stats appends=%d reuses=%d, want 2 and 2", st.StaticsAppends, st.StaticsReuses)
	}
	if st.AppendedBytes != 33 {
		t.Errorf("AppendedBytes = %d, want 33", st.AppendedBytes)
	}
}

func TestStaticsZeroLengthWrite(t *testing.T) {
	s, _ := openTestSession(t, 2, 2, 0)

	if err := s.WriteStatics(1, payload(8, 9)); err != nil {
		t.Fatal(err)
	}
	end := s.pool.End()

	if err := s.WriteStatics(1, nil); err != nil {
		t.Fatalf("WriteStatics(empty): %v", err)
	}
	e, _ := s.index.Entry(1)
	if e.Lookup != EmptyLookup || e.Length != 0 {
		t.Fatalf("entry = %+v, want empty sentinel", e)
	}
	if _, ok := s.ReadStatics(1); ok {
		t.Fatal("ReadStatics reported data for a cleared block")
	}
	if s.pool.End() != end {
		t.Errorf("pool end changed from %d to %d on clear", end, s.pool.End())
	}

	// A cleared block always appends on the next write.
	if err := s.WriteStatics(1, payload(4, 0)); err != nil {
		t.Fatal(err)
	}
	e, _ = s.index.Entry(1)
	if e.Lookup != end {
		t.Errorf("lookup after clear+write = %d, want %d", e.Lookup, end)
	}
}

func TestStaticsCapacityExceeded(t *testing.T) {
	s, _ := openTestSession(t, 2, 2, 16)

	if err := s.WriteStatics(0, payload(10, 0)); err != nil {
		t.Fatal(err)
	}
	err := s.WriteStatics(1, payload(10, 0))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("WriteStatics past capacity: err = %v, want ErrCapacityExceeded", err)
	}

	e, _ := s.index.Entry(1)
	if e != EmptyIndexEntry {
		t.Errorf("rejected block entry = %+v, want unchanged empty entry", e)
	}
	if s.pool.End() != 10 {
		t.Errorf("pool end = %d, want 10", s.pool.End())
	}

	// In-place rewrites still work on a full pool.
	if err := s.WriteStatics(0, payload(6, 7)); err != nil {
		t.Errorf("in-place write on full pool: %v", err)
	}
}

func TestStaticsPersistAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	if _, err := CreateGrid(dir, 2, 3, 3); err != nil {
		t.Fatal(err)
	}

	s, err := OpenSession(dir, 2, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := map[uint32][]byte{
		0: payload(7, 1),
		4: payload(21, 2),
		8: payload(3, 3),
	}
	for b, p := range want {
		if err := s.WriteStatics(b, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.WriteStatics(4, payload(30, 5)); err != nil {
		t.Fatal(err)
	}
	want[4] = payload(30, 5)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSession(dir, 2, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	for b, p := range want {
		got, ok := s.ReadStatics(b)
		if !ok || !bytes.Equal(got, p) {
			t.Errorf("block %d after reopen = %x (ok=%v), want %x", b, got, ok, p)
		}
	}
	if _, ok := s.ReadStatics(1); ok {
		t.Error("untouched block 1 has statics after reopen")
	}
}

func TestStaticsOnDiskMatchesMirror(t *testing.T) {
	s, dir := openTestSession(t, 2, 2, 0)

	if err := s.WriteStatics(2, payload(9, 0x40)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteStatics(3, payload(5, 0x50)); err != nil {
		t.Fatal(err)
	}

	paths := PathsFor(dir, 0)
	idx, err := os.ReadFile(paths.Index)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(idx, s.index.mirror) {
		t.Fatalf("staidx on disk differs from mirror:\n disk   %x\n mirror %x", idx, s.index.mirror)
	}
	pool, err := os.ReadFile(paths.Statics)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pool, s.pool.mem) {
		t.Fatalf("statics on disk differs from mirror")
	}

	e := decodeIndexEntry(idx[3*IndexRecordSize:])
	if e.Lookup != 9 || e.Length != 5 {
		t.Errorf("disk record 3 = %+v, want lookup 9 length 5", e)
	}
}

func TestStaticsOutOfRange(t *testing.T) {
	s, _ := openTestSession(t, 2, 2, 0)

	if _, ok := s.ReadStatics(4); ok {
		t.Error("ReadStatics(4) on a 4-block map reported data")
	}
	if err := s.WriteStatics(4, []byte{1}); !errors.Is(err, ErrBlockOutOfRange) {
		t.Errorf("WriteStatics(4): err = %v, want ErrBlockOutOfRange", err)
	}
}

func TestStaticsLegacyLengthSentinel(t *testing.T) {
	s, _ := openTestSession(t, 2, 2, 0)

	if err := s.WriteStatics(0, payload(16, 0)); err != nil {
		t.Fatal(err)
	}
	// Legacy files mark empty blocks with length 0xFFFFFFFF and a real lookup.
	if err := s.index.SetLength(0, EmptyLength); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.ReadStatics(0); ok {
		t.Fatal("block with length sentinel reported data")
	}

	if err := s.WriteStatics(0, payload(4, 1)); err != nil {
		t.Fatal(err)
	}
	e, _ := s.index.Entry(0)
	if e.Lookup != 16 {
		t.Errorf("lookup = %d, want append at 16", e.Lookup)
	}
}

func TestSessionLockIsExclusive(t *testing.T) {
	s, dir := openTestSession(t, 1, 1, 0)

	if _, err := OpenSession(dir, 0, Options{NoSync: true}); !errors.Is(err, ErrLocked) {
		t.Fatalf("second OpenSession: err = %v, want ErrLocked", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s2, err := OpenSession(dir, 0, Options{NoSync: true})
	if err != nil {
		t.Fatalf("OpenSession after Close: %v", err)
	}
	s2.Close()
}

func TestSessionClosed(t *testing.T) {
	s, _ := openTestSession(t, 1, 1, 0)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.WriteStatics(0, []byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteStatics after Close: err = %v, want ErrClosed", err)
	}
	if _, ok := s.ReadStatics(0); ok {
		t.Error("ReadStatics after Close reported data")
	}
}

func TestOpenSessionMissingFiles(t *testing.T) {
	_, err := OpenSession(t.TempDir(), 7, Options{})
	var ioErr *StorageIOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("err = %v, want *StorageIOError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist in chain", err)
	}
}
