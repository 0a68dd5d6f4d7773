package store

import (
	"fmt"

	"github.com/rs/zerolog"
)

// StaticsStore places variable-length statics payloads in a BlockPool and
// records their location in a BlockIndex. It owns neither; Session does.
type StaticsStore struct {
	index *BlockIndex
	pool  *BlockPool
	stats *StatsCollector
	log   zerolog.Logger
}

// NewStaticsStore composes an index and a pool. stats may be nil.
func NewStaticsStore(index *BlockIndex, pool *BlockPool, stats *StatsCollector, log zerolog.Logger) *StaticsStore {
	if stats == nil {
		stats = NewStatsCollector()
	}
	return &StaticsStore{index: index, pool: pool, stats: stats, log: log}
}

// ReadBlock returns a copy of the statics payload of blockNum. ok is false
// when the block has no statics or blockNum is outside the index.
func (s *StaticsStore) ReadBlock(blockNum uint32) (data []byte, ok bool) {
	s.stats.IncrementReads()
	e, err := s.index.Entry(blockNum)
	if err != nil {
		s.log.Debug().Err(err).Uint32("block", blockNum).Msg("statics read outside index")
		return nil, false
	}
	return s.pool.Read(e.Lookup, e.Length)
}

// WriteBlock stores payload as the statics of blockNum.
//
// An empty payload resets the record to the empty sentinel without touching
// the pool. A payload no longer than the current slot is written in place;
// a longer one is appended at the pool end. The length field is persisted
// before the placement, and both files are flushed before returning.
func (s *StaticsStore) WriteBlock(blockNum uint32, payload []byte) error {
	n := len(payload)
	if n == 0 {
		if err := s.index.Set(blockNum, EmptyLookup, 0); err != nil {
			return fmt.Errorf("clear statics block %d: %w", blockNum, err)
		}
		s.stats.IncrementClears()
		s.log.Debug().Uint32("block", blockNum).Msg("statics cleared")
		return nil
	}
	if uint64(n) >= uint64(EmptyLength) {
		return fmt.Errorf("statics block %d: %d bytes: %w", blockNum, n, ErrCapacityExceeded)
	}

	cur, err := s.index.Entry(blockNum)
	if err != nil {
		return err
	}
	length := uint32(n)

	if s.canReuse(cur, length) {
		if err := s.index.SetLength(blockNum, length); err != nil {
			return err
		}
		if err := s.pool.Overwrite(cur.Lookup, payload); err != nil {
			return fmt.Errorf("rewrite statics block %d: %w", blockNum, err)
		}
		if err := s.index.Flush(); err != nil {
			return err
		}
		s.stats.IncrementReuses()
		s.log.Debug().Uint32("block", blockNum).Uint32("lookup", cur.Lookup).Uint32("length", length).Msg("statics rewritten in place")
		return nil
	}

	// Reject before touching the index so a full pool leaves the block as it was.
	if !s.pool.Fits(n) {
		return fmt.Errorf("statics block %d: append %d bytes at %d: %w", blockNum, n, s.pool.End(), ErrCapacityExceeded)
	}
	if err := s.index.SetLength(blockNum, length); err != nil {
		return err
	}
	lookup, err := s.pool.Append(payload)
	if err != nil {
		return fmt.Errorf("append statics block %d: %w", blockNum, err)
	}
	if err := s.index.SetLookup(blockNum, lookup); err != nil {
		return err
	}
	if err := s.index.Flush(); err != nil {
		return err
	}
	s.stats.IncrementAppends(uint64(n))
	s.log.Debug().Uint32("block", blockNum).Uint32("lookup", lookup).Uint32("length", length).Msg("statics appended")
	return nil
}

// canReuse reports whether length bytes fit in the block's current slot.
func (s *StaticsStore) canReuse(cur IndexEntry, length uint32) bool {
	if cur.Length == EmptyLength || cur.Length < length {
		return false
	}
	if cur.Lookup == EmptyLookup || cur.Lookup >= s.pool.Capacity() {
		return false
	}
	// A slot pointing past the written pool end cannot be rewritten.
	return uint64(cur.Lookup)+uint64(length) <= uint64(s.pool.End())
}

// PoolEnd returns the current end offset of the statics pool.
func (s *StaticsStore) PoolEnd() uint32 {
	return s.pool.End()
}
