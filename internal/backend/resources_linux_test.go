//go:build linux

package backend

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resources snapshots this process's open descriptors and the mappings of
// the given files.
type resources struct {
	fds  int32
	maps int
}

// self is created once. Each NewProcess handle keeps a pidfd open.
var self = sync.OnceValues(func() (*process.Process, error) {
	return process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: pid fits in int32
})

func snapshot(t *testing.T, files ...string) resources {
	t.Helper()
	p, err := self()
	require.NoError(t, err)

	fds, err := p.NumFDs()
	require.NoError(t, err)

	mm, err := p.MemoryMaps(false)
	require.NoError(t, err)

	var maps int
	for _, m := range *mm {
		for _, f := range files {
			if m.Path == f {
				maps++
			}
		}
	}
	return resources{fds: fds, maps: maps}
}

func TestSnapshot_Stable(t *testing.T) {
	src, dst := paths(t)
	writeRandom(t, src, 4096)

	first := snapshot(t, src, dst)
	for range 3 {
		assert.Equal(t, first, snapshot(t, src, dst))
	}
}

func TestBackend_ReleasesResources(t *testing.T) {
	for _, m := range availableMethods(t) {
		t.Run(m.String(), func(t *testing.T) {
			src, dst := paths(t)
			writeRandom(t, src, 300_000)
			before := snapshot(t, src, dst)

			_, err := Transform(m.String(), Job{Src: src, Dst: dst, BlockSize: 4096}, Copy, Options{})
			require.NoError(t, err)
			assert.Equal(t, before, snapshot(t, src, dst), "after success")

			_, err = Transform(m.String(), Job{Src: src, Dst: dst, BlockSize: 4096},
				func([]byte, []byte) bool { return false }, Options{})
			require.NoError(t, err)
			assert.Equal(t, before, snapshot(t, src, dst), "after early stop")

			_, err = Transform(m.String(), Job{Src: src, Dst: filepath.Join(filepath.Dir(dst), "no", "dst"), BlockSize: 4096}, Copy, Options{})
			require.Error(t, err)
			assert.Equal(t, before, snapshot(t, src, dst), "after open failure")
		})
	}
}

func TestMapped_ViewsLiveOnlyWhileOpen(t *testing.T) {
	src, dst := paths(t)
	writeRandom(t, src, 200_000)
	before := snapshot(t, src, dst)

	b, err := New(Mapped, Options{})
	require.NoError(t, err)
	require.NoError(t, b.Open(Job{Src: src, Dst: dst, BlockSize: 4096}))

	open := snapshot(t, src, dst)
	assert.Equal(t, before.fds+2, open.fds)
	assert.Positive(t, open.maps)

	require.NoError(t, b.Close())
	assert.Equal(t, before, snapshot(t, src, dst))
}

func TestMapped_SourceTruncatedMidRun(t *testing.T) {
	const bs = 64 * 1024
	src, dst := paths(t)
	writeRandom(t, src, 16*bs)
	before := snapshot(t, src, dst)

	calls := 0
	fn := func(in, out []byte) bool {
		calls++
		if calls == 3 {
			// Pages past the new end of file can no longer be read in.
			require.NoError(t, os.Truncate(src, 0))
		}
		copy(out, in)
		return true
	}

	res, err := Transform("winmap", Job{Src: src, Dst: dst, BlockSize: bs}, fn, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMappedIOFault)
	assert.Equal(t, int64(2), res.Blocks)
	assert.Equal(t, 3, calls, "the loop stops at the faulting block")
	assert.Equal(t, before, snapshot(t, src, dst), "fault path releases views and handles")
}

func TestMapped_WriteToSourceIsNotAnIOFault(t *testing.T) {
	src, dst := paths(t)
	writeRandom(t, src, 8192)

	b, err := New(Mapped, Options{})
	require.NoError(t, err)
	require.NoError(t, b.Open(Job{Src: src, Dst: dst, BlockSize: 4096}))
	defer b.Close()

	assert.Panics(t, func() {
		_, _ = b.Run(func(in, _ []byte) bool {
			in[0] ^= 0xff
			return true
		})
	})
}

func TestCreate_ReleasesResources(t *testing.T) {
	for _, m := range availableMethods(t) {
		t.Run(m.String(), func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "created.bin")
			before := snapshot(t, dst)

			_, err := Create(m, CreateJob{Dst: dst, Size: 256 * 1024, BlockSize: 4096}, Pattern, Options{})
			require.NoError(t, err)
			assert.Equal(t, before, snapshot(t, dst))
		})
	}
}
