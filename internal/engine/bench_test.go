package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/event"
)

func TestEngine_Bench(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bench.bin")
	writeRandom(t, src, 1<<20)

	reporter, events := collectEvents(t)
	e := New(Config{Reporter: reporter})

	results, err := e.Bench(context.Background(), BenchConfig{
		Src:        src,
		BlockSize:  64 * 1024,
		Methods:    []backend.Method{backend.Buffered, backend.Stream, backend.Mapped},
		Runs:       2,
		ClearCache: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 6)

	for _, r := range results {
		require.NoError(t, r.Err, r.Method.String())
		assert.Equal(t, int64(1<<20), r.Bytes)
		assert.Equal(t, int64(16), r.Blocks)
		assert.Positive(t, r.Throughput())
	}
	assert.Equal(t, 2, results[5].Run)
	assert.Equal(t, backend.Mapped, results[5].Method)

	// Only the source remains.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	var cleared int
	for _, ev := range events() {
		if ev.Type == event.CacheCleared {
			cleared++
		}
	}
	assert.Equal(t, 6, cleared)
}

func TestEngine_BenchRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bench.bin")
	writeRandom(t, src, 4096)

	e := New(Config{})
	results, err := e.Bench(context.Background(), BenchConfig{
		Src:       src,
		Dir:       filepath.Join(dir, "missing"),
		BlockSize: 1024,
		Methods:   []backend.Method{backend.Stream},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, backend.ErrDestinationUnwritable)
	assert.Zero(t, results[0].Throughput())
}

func TestEngine_BenchInvalid(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{})

	_, err := e.Bench(context.Background(), BenchConfig{Src: filepath.Join(dir, "none"), BlockSize: 1})
	require.Error(t, err)

	_, err = e.Bench(context.Background(), BenchConfig{Src: dir, BlockSize: 1})
	require.Error(t, err)

	src := filepath.Join(dir, "f")
	writeRandom(t, src, 10)
	_, err = e.Bench(context.Background(), BenchConfig{Src: src})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := e.Bench(ctx, BenchConfig{Src: src, BlockSize: 4})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
