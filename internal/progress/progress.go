// Package progress turns byte counts from long copy loops into percentage
// callbacks. A Sink is called synchronously, only when the whole-number
// percentage grows.
package progress

// Sink receives completion percentages in the range 1..100.
type Sink func(percent uint32)

// Tracker accumulates copied bytes against a known total.
type Tracker struct {
	sink   Sink
	total  uint64
	done   uint64
	prev   uint32
	halted bool
}

// NewTracker returns a tracker for total bytes. A nil sink is allowed.
func NewTracker(total uint64, sink Sink) *Tracker {
	return &Tracker{sink: sink, total: total}
}

// Add records n more bytes and notifies the sink if the percentage went up.
func (t *Tracker) Add(n int) {
	if n <= 0 || t.halted {
		return
	}
	t.done += uint64(n)
	if t.sink == nil || t.total == 0 {
		return
	}
	pct := t.Percent()
	if pct > t.prev {
		t.prev = pct
		t.sink(pct)
	}
}

// Halt stops all further notifications. Used after a failed copy.
func (t *Tracker) Halt() {
	t.halted = true
}

// Done returns the number of bytes recorded so far.
func (t *Tracker) Done() uint64 {
	return t.done
}

// Percent returns the current whole percentage, capped at 100.
func (t *Tracker) Percent() uint32 {
	if t.total == 0 {
		return 0
	}
	pct := t.done * 100 / t.total
	if pct > 100 {
		pct = 100
	}
	return uint32(pct)
}
