package store

import (
	"io"
	"os"

	"github.com/freeeve/ultimalive/internal/progress"
)

const copyChunkSize = 4096

// CopyFile copies src to dst in 4 KiB chunks, reporting the copied
// percentage to sink. dst is created or truncated. On failure the bytes
// already written to dst stay, and sink is not called again.
func CopyFile(src, dst string, sink progress.Sink) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, ioError("open", src, err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, ioError("stat", src, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, ioError("create", dst, err)
	}

	tracker := progress.NewTracker(uint64(fi.Size()), sink)
	buf := make([]byte, copyChunkSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				tracker.Halt()
				out.Close()
				return int64(tracker.Done()), ioError("write", dst, werr)
			}
			tracker.Add(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			tracker.Halt()
			out.Close()
			return int64(tracker.Done()), ioError("read", src, rerr)
		}
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return int64(tracker.Done()), ioError("sync", dst, err)
	}
	return int64(tracker.Done()), ioError("close", dst, out.Close())
}
