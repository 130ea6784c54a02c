package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	h1, err := HashFile(ctx, path)
	require.NoError(t, err)
	assert.NotEmpty(t, h1)

	// Same content should produce the same hash.
	path2 := filepath.Join(dir, "test2.txt")
	require.NoError(t, os.WriteFile(path2, []byte("hello world"), 0644))
	h2, err := HashFile(ctx, path2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Different content should produce a different hash.
	path3 := filepath.Join(dir, "test3.txt")
	require.NoError(t, os.WriteFile(path3, []byte("different content"), 0644))
	h3, err := HashFile(ctx, path3)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestHashFileEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	h, err := HashFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, h)
}

func TestHashFileNotExist(t *testing.T) {
	_, err := HashFile(context.Background(), "/nonexistent/file")
	assert.Error(t, err)
}

func TestHashFileCanceled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 1<<20), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := HashFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
