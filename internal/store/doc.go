// Package store is the persistent storage engine for MUL map files.
//
// A map is stored as three files:
//   - map<N>.mul:     fixed 196-byte land blocks, `width` strips of `height` blocks
//   - staidx<N>.mul:  12-byte index records (lookup, length, reserved), one per block
//   - statics<N>.mul: a flat pool of variable-length statics payloads
//
// Every file is mirrored in memory when a Session is opened. Reads are served
// from the mirrors; every mutation updates the mirror and the backing file and
// flushes before returning, so durability is per call.
//
// Statics placement:
//   - an empty payload resets the index record to the empty sentinel
//   - a payload that fits in the block's current slot is rewritten in place
//   - anything else is appended at the end of the pool and the index repointed
//
// Space freed by shrinking or relocating a payload is never reclaimed.
//
// The package assumes a single mutator per map. OpenSession enforces that with
// an exclusive lock file next to the map files; BlockIndex, BlockPool and
// StaticsStore do no locking of their own.
package store
