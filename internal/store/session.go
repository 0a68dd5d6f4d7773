package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LockFileName returns the name of the lock file guarding a map.
func LockFileName(mapNumber int) string {
	return fmt.Sprintf(".map%d.lock", mapNumber)
}

// Options configures OpenSession.
type Options struct {
	// StaticsCapacity bounds the statics pool; zero means StaticsMemorySize.
	StaticsCapacity uint32
	// NoSync skips fsync after each mutation. Writes still reach the OS
	// before the call returns.
	NoSync bool
	// Logger receives debug and lifecycle events; nil disables logging.
	Logger *zerolog.Logger
}

// Session is an open map: its land blocks, statics index and statics pool,
// mirrored in memory and backed by the map's three files.
//
// A Session is the single mutator of its map. It holds an exclusive lock on
// the map directory entry for its whole lifetime and must not be shared
// between goroutines without external serialization.
type Session struct {
	dir       string
	mapNumber int

	lockFile *os.File
	land     *LandStore
	index    *BlockIndex
	pool     *BlockPool
	statics  *StaticsStore
	stats    *StatsCollector

	log    zerolog.Logger
	closed bool
}

// OpenSession locks map mapNumber in dir and loads its files. The files must
// already exist (see CreateGrid).
func OpenSession(dir string, mapNumber int, opts Options) (*Session, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Int("map", mapNumber).Logger()
	}
	sync := !opts.NoSync
	paths := PathsFor(dir, mapNumber)

	lockFile, err := acquireLock(filepath.Join(dir, LockFileName(mapNumber)))
	if err != nil {
		return nil, err
	}

	s := &Session{
		dir:       dir,
		mapNumber: mapNumber,
		lockFile:  lockFile,
		stats:     NewStatsCollector(),
		log:       log,
	}

	if s.land, err = OpenLandStore(paths.Map, sync); err != nil {
		s.closeFiles()
		return nil, err
	}
	if s.index, err = OpenBlockIndex(paths.Index, sync); err != nil {
		s.closeFiles()
		return nil, err
	}
	if s.pool, err = OpenBlockPool(paths.Statics, opts.StaticsCapacity, sync); err != nil {
		s.closeFiles()
		return nil, err
	}
	s.statics = NewStaticsStore(s.index, s.pool, s.stats, log)

	if s.land.Blocks() != s.index.Blocks() {
		log.Warn().
			Uint32("land_blocks", s.land.Blocks()).
			Uint32("index_blocks", s.index.Blocks()).
			Msg("map and statics index disagree on block count")
	}
	log.Info().
		Str("dir", dir).
		Uint32("blocks", s.index.Blocks()).
		Uint32("pool_bytes", s.pool.End()).
		Msg("map session opened")
	return s, nil
}

// MapNumber returns the map number this session serves.
func (s *Session) MapNumber() int {
	return s.mapNumber
}

// Dir returns the directory holding the map files.
func (s *Session) Dir() string {
	return s.dir
}

// ReadStatics returns a copy of the statics of blockNum; ok is false when the
// block has none.
func (s *Session) ReadStatics(blockNum uint32) ([]byte, bool) {
	if s.closed {
		return nil, false
	}
	return s.statics.ReadBlock(blockNum)
}

// WriteStatics replaces the statics of blockNum.
func (s *Session) WriteStatics(blockNum uint32, payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	return s.statics.WriteBlock(blockNum, payload)
}

// ReadLand returns a copy of land block blockNum.
func (s *Session) ReadLand(blockNum uint32) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	s.stats.IncrementLandReads()
	return s.land.ReadBlock(blockNum)
}

// WriteLand replaces land block blockNum.
func (s *Session) WriteLand(blockNum uint32, block []byte) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.land.WriteBlock(blockNum, block); err != nil {
		return err
	}
	s.stats.IncrementLandWrites()
	return nil
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	st := s.stats.Snapshot()
	if s.pool != nil {
		st.PoolBytes = s.pool.End()
		st.PoolCapacity = s.pool.Capacity()
	}
	if s.index != nil {
		st.Blocks = s.index.Blocks()
	}
	return st
}

// Flush pushes all pending writes of the three files to disk.
func (s *Session) Flush() error {
	if s.closed {
		return ErrClosed
	}
	return errors.Join(s.land.file.flush(), s.index.Flush(), s.pool.Flush())
}

// Close flushes and closes the map files and releases the lock. Closing an
// already closed session is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.closeFiles()
	st := s.Stats()
	s.log.Info().
		Uint64("statics_writes", st.StaticsWrites()).
		Uint64("land_writes", st.LandWrites).
		Uint32("pool_bytes", st.PoolBytes).
		Msg("map session closed")
	return err
}

func (s *Session) closeFiles() error {
	var errs []error
	if s.land != nil {
		errs = append(errs, s.land.Close())
	}
	if s.index != nil {
		errs = append(errs, s.index.Close())
	}
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
	}
	errs = append(errs, releaseLock(s.lockFile))
	s.lockFile = nil
	return errors.Join(errs...)
}
