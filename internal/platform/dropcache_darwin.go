//go:build darwin

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DropCache flushes path and marks it uncached. macOS has no per-file
// eviction call, so this is best effort.
func DropCache(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Sync(); err != nil {
		return fmt.Errorf("fsync %s: %w", path, err)
	}
	if _, err := unix.FcntlInt(f.Fd(), unix.F_NOCACHE, 1); err != nil {
		return fmt.Errorf("F_NOCACHE %s: %w", path, err)
	}
	return nil
}
