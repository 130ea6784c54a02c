package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/stats"
)

// checkFreeSpace fails when the filesystem holding dst cannot take size more
// bytes. Space held by an existing dst counts as free since it is replaced.
func checkFreeSpace(dst string, size int64) error {
	dir := filepath.Dir(dst)
	usage, err := disk.Usage(dir)
	if err != nil {
		return &backend.Error{Kind: backend.DestinationUnwritable, Op: "query free space", Path: dir, Err: err}
	}

	free := usage.Free
	if info, err := os.Stat(dst); err == nil && info.Mode().IsRegular() {
		free += uint64(info.Size()) //nolint:gosec // G115: file sizes are non-negative
	}
	if uint64(size) > free { //nolint:gosec // G115: size validated positive
		return &backend.Error{
			Kind: backend.DestinationUnwritable,
			Op:   "check free space",
			Path: dst,
			Err: fmt.Errorf("need %s, %s available",
				stats.FormatBytes(size), stats.FormatBytes(int64(min(free, 1<<62)))), //nolint:gosec // G115: clamped
		}
	}
	return nil
}
