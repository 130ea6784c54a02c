package backend

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/blockio/internal/platform"
)

// availableMethods returns every method the host can run. Ring is left out
// when the kernel (or a seccomp profile) refuses io_uring.
func availableMethods(t *testing.T) []Method {
	t.Helper()
	methods := []Method{Buffered, Stream, Handle, Mapped}
	rg, err := platform.NewRing(defaultRingEntries)
	if err != nil {
		t.Logf("io_uring unavailable, skipping uring backend: %v", err)
		return methods
	}
	require.NoError(t, rg.Close())
	return append(methods, Ring)
}

// writeRandom creates a file of n random bytes and returns its content.
func writeRandom(t *testing.T, path string, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

// paths returns a source and destination path inside a fresh temp dir.
func paths(t *testing.T) (src, dst string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "src.bin"), filepath.Join(dir, "dst.bin")
}

func expectedBlocks(size, blockSize int) int64 {
	return int64((size + blockSize - 1) / blockSize)
}
