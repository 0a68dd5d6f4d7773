//go:build !unix

package store

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// acquireLock creates path exclusively. A leftover file from a crashed
// session has to be removed by hand.
func acquireLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, ioError("create", path, err)
	}
	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_, _ = f.WriteString(content)
	return f, nil
}

func releaseLock(f *os.File) error {
	if f == nil {
		return nil
	}
	name := f.Name()
	err := f.Close()
	if rerr := os.Remove(name); err == nil && rerr != nil && !os.IsNotExist(rerr) {
		err = rerr
	}
	return err
}
