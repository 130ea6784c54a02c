package backend

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/time/rate"
)

// blockReader reads the block at off. It returns fewer than len(p) bytes only
// at end of file.
type blockReader interface {
	readBlock(p []byte, off int64) (int, error)
}

// blockWriter writes the block at off and reports how much of it landed.
// flush pushes anything still buffered and records losses on t.
type blockWriter interface {
	writeBlock(p []byte, off int64) (int, error)
	flush(t *tally)
}

// tally accumulates the Result of one job.
type tally struct {
	res     Result
	start   time.Time
	digest  *xxhash.Digest
	limiter *rate.Limiter
}

func newTally(m Method, opts Options) *tally {
	t := &tally{
		res:     Result{Method: m},
		start:   time.Now(),
		limiter: opts.Limiter,
	}
	if opts.Checksum {
		t.digest = xxhash.New()
	}
	return t
}

// block counts one block that was handed to the destination. The checksum
// covers every byte produced, including any a short write dropped.
func (t *tally) block(out []byte) {
	t.res.Blocks++
	t.res.Bytes += int64(len(out))
	if t.digest != nil {
		_, _ = t.digest.Write(out)
	}
}

// shortWrite records a write that landed got of want bytes. The missing
// bytes are taken off Bytes; the block itself still counts.
func (t *tally) shortWrite(off int64, want, got int, err error) {
	got = min(max(got, 0), want)
	t.res.Bytes -= int64(want - got)
	t.res.ShortWrites++
	if len(t.res.Warnings) < maxWarnings {
		t.res.Warnings = append(t.res.Warnings, Warning{Offset: off, Want: want, Got: got, Err: err})
	}
}

// throttle blocks until the limiter admits n bytes. WaitN rejects requests
// above the burst, so large blocks are admitted in burst-sized steps.
func (t *tally) throttle(n int) {
	if t.limiter == nil || t.limiter.Limit() == rate.Inf {
		return
	}
	burst := t.limiter.Burst()
	if burst <= 0 {
		return
	}
	for n > 0 {
		step := min(n, burst)
		_ = t.limiter.WaitN(context.Background(), step)
		n -= step
	}
}

func (t *tally) finish() Result {
	t.res.Elapsed = time.Since(t.start)
	if t.digest != nil {
		t.res.Checksum = t.digest.Sum64()
	}
	return t.res
}

// iterate is the block loop shared by every backend that moves data through
// private buffers.
func iterate(r blockReader, w blockWriter, job Job, fn TransformFunc, t *tally) error {
	in := make([]byte, job.BlockSize)
	out := make([]byte, job.BlockSize)

	var off int64
	for {
		n, err := r.readBlock(in, off)
		if err != nil {
			return &Error{Kind: ReadFailed, Op: "read block", Path: job.Src, Err: err}
		}
		if n == 0 {
			break
		}
		if !fn(in[:n], out[:n]) {
			t.res.EarlyStop = true
			break
		}
		t.throttle(n)
		written, werr := w.writeBlock(out[:n], off)
		if written != n || werr != nil {
			t.shortWrite(off, n, written, werr)
		}
		t.block(out[:n])
		off += int64(n)
		if n < job.BlockSize {
			break
		}
	}
	w.flush(t)
	return nil
}
