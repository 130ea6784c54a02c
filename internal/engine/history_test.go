package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/blockio/internal/backend"
)

func TestHistory_OpenClose(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	h, err := OpenHistory("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "blockio", "history.db"), h.Path())
	assert.FileExists(t, h.Path())
	require.NoError(t, h.Close())
}

func TestHistory_RecordAndList(t *testing.T) {
	ctx := context.Background()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	at := time.Unix(1_700_000_000, 0)
	require.NoError(t, h.Record(ctx, "/data/src.bin", at, []BenchResult{
		{Method: backend.Buffered, Run: 1, BlockSize: 4096, Blocks: 256, Bytes: 1 << 20, Elapsed: 100 * time.Millisecond},
		{Method: backend.Mapped, Run: 1, BlockSize: 4096, Blocks: 256, Bytes: 1 << 20, Elapsed: 50 * time.Millisecond},
		{Method: backend.Ring, Run: 1, BlockSize: 4096, Err: errors.New("backend unavailable")},
	}))
	require.NoError(t, h.Record(ctx, "/data/src.bin", at, nil))

	entries, err := h.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, "uring", entries[0].Backend)
	assert.Equal(t, "backend unavailable", entries[0].Err)
	assert.Zero(t, entries[0].Throughput())
	assert.Equal(t, "crt", entries[2].Backend)
	assert.True(t, at.Equal(entries[2].At))
	assert.Equal(t, 100*time.Millisecond, entries[2].Elapsed)
	assert.InDelta(t, float64(1<<20)*10, entries[2].Throughput(), 1)

	limited, err := h.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestHistory_Totals(t *testing.T) {
	ctx := context.Background()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	now := time.Now()
	require.NoError(t, h.Record(ctx, "s", now, []BenchResult{
		{Method: backend.Stream, Bytes: 1000, Elapsed: time.Second},
		{Method: backend.Stream, Bytes: 3000, Elapsed: time.Second},
		{Method: backend.Mapped, Bytes: 9000, Elapsed: time.Second},
		{Method: backend.Handle, Err: errors.New("boom")},
	}))

	totals, err := h.Totals(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "winmap", totals[0].Backend)
	assert.Equal(t, "std", totals[1].Backend)
	assert.Equal(t, int64(2), totals[1].Runs)
	assert.InDelta(t, 2000.0, totals[1].Throughput(), 0.001)
}
