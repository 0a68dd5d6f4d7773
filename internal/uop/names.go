package uop

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PatternFor derives the name pattern of a container from its path: the
// lower-cased base name without extension, e.g. "map0legacymul".
func PatternFor(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// EntryName is the synthetic path of the i-th file of a container.
func EntryName(pattern string, i int) string {
	return fmt.Sprintf("build/%s/%08d.dat", pattern, i)
}

// MapHashes returns the checksums of the first count entry names, in order.
func MapHashes(count int, pattern string) []uint64 {
	hashes := make([]uint64, count)
	for i := range hashes {
		hashes[i] = HashFileName(EntryName(pattern, i))
	}
	return hashes
}
