package store

import "sync/atomic"

// Stats is a snapshot of session counters.
type Stats struct {
	StaticsReads   uint64
	StaticsReuses  uint64
	StaticsAppends uint64
	StaticsClears  uint64
	AppendedBytes  uint64
	LandReads      uint64
	LandWrites     uint64

	PoolBytes    uint32
	PoolCapacity uint32
	Blocks       uint32
}

// StaticsWrites returns the number of statics writes of any kind.
func (s Stats) StaticsWrites() uint64 {
	return s.StaticsReuses + s.StaticsAppends + s.StaticsClears
}

// StatsCollector collects counters for a session.
type StatsCollector struct {
	staticsReads   uint64
	staticsReuses  uint64
	staticsAppends uint64
	staticsClears  uint64
	appendedBytes  uint64
	landReads      uint64
	landWrites     uint64
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// IncrementReads atomically increments the statics read counter
func (s *StatsCollector) IncrementReads() {
	atomic.AddUint64(&s.staticsReads, 1)
}

// IncrementReuses atomically increments the in-place rewrite counter
func (s *StatsCollector) IncrementReuses() {
	atomic.AddUint64(&s.staticsReuses, 1)
}

// IncrementAppends counts an append of n bytes
func (s *StatsCollector) IncrementAppends(n uint64) {
	atomic.AddUint64(&s.staticsAppends, 1)
	atomic.AddUint64(&s.appendedBytes, n)
}

// IncrementClears atomically increments the cleared-block counter
func (s *StatsCollector) IncrementClears() {
	atomic.AddUint64(&s.staticsClears, 1)
}

// IncrementLandReads atomically increments the land read counter
func (s *StatsCollector) IncrementLandReads() {
	atomic.AddUint64(&s.landReads, 1)
}

// IncrementLandWrites atomically increments the land write counter
func (s *StatsCollector) IncrementLandWrites() {
	atomic.AddUint64(&s.landWrites, 1)
}

// Snapshot returns the current counter values.
func (s *StatsCollector) Snapshot() Stats {
	return Stats{
		StaticsReads:   atomic.LoadUint64(&s.staticsReads),
		StaticsReuses:  atomic.LoadUint64(&s.staticsReuses),
		StaticsAppends: atomic.LoadUint64(&s.staticsAppends),
		StaticsClears:  atomic.LoadUint64(&s.staticsClears),
		AppendedBytes:  atomic.LoadUint64(&s.appendedBytes),
		LandReads:      atomic.LoadUint64(&s.landReads),
		LandWrites:     atomic.LoadUint64(&s.landWrites),
	}
}
