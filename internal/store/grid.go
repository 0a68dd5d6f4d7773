package store

import (
	"bufio"
	"io"
	"os"
)

// GridResult reports which files CreateGrid (re)created. A false field means
// an existing file of the right size was kept.
type GridResult struct {
	MapCreated     bool
	IndexCreated   bool
	StaticsCreated bool
}

// Created reports whether any file was written.
func (r GridResult) Created() bool {
	return r.MapCreated || r.IndexCreated || r.StaticsCreated
}

// MapFileSize returns the size of a map file of the given block dimensions.
func MapFileSize(widthBlocks, heightBlocks uint32) int64 {
	return int64(widthBlocks) * int64(heightBlocks) * LandBlockSize
}

// IndexFileSize returns the size of a staidx file of the given block dimensions.
func IndexFileSize(widthBlocks, heightBlocks uint32) int64 {
	return int64(widthBlocks) * int64(heightBlocks) * IndexRecordSize
}

// CreateGrid creates the map, staidx and statics files of map mapNumber in
// dir for a grid of widthBlocks x heightBlocks blocks. Every land block is
// the template block and every index record is empty.
//
// Files that already exist with the expected size are kept. A file of the
// wrong size is discarded and rewritten. The statics pool is truncated
// whenever the index is rewritten, since old payloads are unreachable.
func CreateGrid(dir string, mapNumber int, widthBlocks, heightBlocks uint32) (GridResult, error) {
	var res GridResult
	paths := PathsFor(dir, mapNumber)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return res, ioError("mkdir", dir, err)
	}

	var err error
	res.MapCreated, err = ensureSizedFile(paths.Map, MapFileSize(widthBlocks, heightBlocks), func(w io.Writer) error {
		return writeStrips(w, defaultLandBlock[:], widthBlocks, heightBlocks)
	})
	if err != nil {
		return res, err
	}

	var empty [IndexRecordSize]byte
	encodeIndexEntry(empty[:], EmptyIndexEntry)
	res.IndexCreated, err = ensureSizedFile(paths.Index, IndexFileSize(widthBlocks, heightBlocks), func(w io.Writer) error {
		return writeStrips(w, empty[:], widthBlocks, heightBlocks)
	})
	if err != nil {
		return res, err
	}

	_, statErr := os.Stat(paths.Statics)
	if res.IndexCreated || os.IsNotExist(statErr) {
		f, err := os.Create(paths.Statics)
		if err != nil {
			return res, ioError("create", paths.Statics, err)
		}
		if err := f.Close(); err != nil {
			return res, ioError("close", paths.Statics, err)
		}
		res.StaticsCreated = true
	} else if statErr != nil {
		return res, ioError("stat", paths.Statics, statErr)
	}
	return res, nil
}

// ensureSizedFile keeps path if it already has size bytes, otherwise
// truncates it and fills it with fill.
func ensureSizedFile(path string, size int64, fill func(w io.Writer) error) (bool, error) {
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() && fi.Size() == size {
		return false, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return false, ioError("create", path, err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	if err := fill(bw); err != nil {
		f.Close()
		return false, ioError("write", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return false, ioError("write", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return false, ioError("sync", path, err)
	}
	return true, ioError("close", path, f.Close())
}

// writeStrips writes width strips of height copies of unit.
func writeStrips(w io.Writer, unit []byte, width, height uint32) error {
	strip := make([]byte, 0, len(unit)*int(height))
	for y := uint32(0); y < height; y++ {
		strip = append(strip, unit...)
	}
	for x := uint32(0); x < width; x++ {
		if _, err := w.Write(strip); err != nil {
			return err
		}
	}
	return nil
}
