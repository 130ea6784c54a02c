package backend

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReader struct {
	data []byte
	err  error
}

func (r *memReader) readBlock(p []byte, off int64) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if off >= int64(len(r.data)) {
		return 0, nil
	}
	return copy(p, r.data[off:]), nil
}

// shortWriter drops the tail of every write after the first skip blocks.
type shortWriter struct {
	buf     bytes.Buffer
	skip    int
	writes  int
	flushed bool
}

func (w *shortWriter) writeBlock(p []byte, _ int64) (int, error) {
	w.writes++
	if w.writes <= w.skip {
		return w.buf.Write(p)
	}
	n, _ := w.buf.Write(p[:len(p)/2])
	return n, errors.New("disk full")
}

func (w *shortWriter) flush(*tally) { w.flushed = true }

func TestIterate_ShortWritesAreNotFatal(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 100*16)
	r := &memReader{data: data}
	w := &shortWriter{skip: 2}
	tl := newTally(Stream, Options{})

	err := iterate(r, w, Job{Src: "src", Dst: "dst", BlockSize: 16}, Copy, tl)
	require.NoError(t, err)
	res := tl.finish()

	assert.True(t, w.flushed)
	assert.Equal(t, int64(100), res.Blocks)
	assert.Equal(t, int64(98), res.ShortWrites)
	// Bytes reports what landed: two full blocks and 98 half blocks.
	assert.Equal(t, int64(w.buf.Len()), res.Bytes)
	assert.Equal(t, int64(2*16+98*8), res.Bytes)
	require.Len(t, res.Warnings, maxWarnings)

	first := res.Warnings[0]
	assert.Equal(t, int64(32), first.Offset)
	assert.Equal(t, 16, first.Want)
	assert.Equal(t, 8, first.Got)
	assert.EqualError(t, first.Err, "disk full")
	assert.Equal(t, "short write at 32: wrote 8 of 16: disk full", first.String())
}

func TestIterate_ReadFailure(t *testing.T) {
	cause := errors.New("EIO")
	r := &memReader{err: cause}
	w := &shortWriter{skip: 1 << 30}
	tl := newTally(Handle, Options{})

	err := iterate(r, w, Job{Src: "src", Dst: "dst", BlockSize: 4}, Copy, tl)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ReadFailed, KindOf(err))
	assert.Zero(t, w.writes)
}

// failingFlushWriter accepts every block into a buffer that then fails to
// flush, like a bufio.Writer over a full disk.
type failingFlushWriter struct {
	pending int
	off     int64
}

func (w *failingFlushWriter) writeBlock(p []byte, _ int64) (int, error) {
	w.pending += len(p)
	w.off += int64(len(p))
	return len(p), nil
}

func (w *failingFlushWriter) flush(t *tally) {
	t.shortWrite(w.off-int64(w.pending), w.pending, 0, errors.New("no space left on device"))
}

func TestIterate_FlushLossReducesBytes(t *testing.T) {
	r := &memReader{data: bytes.Repeat([]byte{1}, 10)}
	w := &failingFlushWriter{}
	tl := newTally(Buffered, Options{})

	require.NoError(t, iterate(r, w, Job{Src: "src", Dst: "dst", BlockSize: 4}, Copy, tl))
	res := tl.finish()

	assert.Equal(t, int64(3), res.Blocks)
	assert.Zero(t, res.Bytes)
	assert.Equal(t, int64(1), res.ShortWrites)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, Warning{Offset: 0, Want: 10, Got: 0, Err: res.Warnings[0].Err}, res.Warnings[0])
}
