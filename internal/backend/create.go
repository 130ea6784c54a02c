package backend

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"go.dw1.io/safemath"

	"github.com/bamsammich/blockio/internal/platform"
)

// Create writes job.Size bytes to job.Dst with method m, calling gen once per
// block. The destination is created or truncated.
func Create(m Method, job CreateJob, gen GeneratorFunc, opts Options) (Result, error) {
	if err := job.Validate(); err != nil {
		return Result{Method: m}, err
	}
	t := newTally(m, opts)

	var err error
	switch m {
	case Buffered, Stream, Handle, Ring:
		err = createBlocks(m, job, gen, opts, t)
	case Mapped:
		err = createMapped(job, gen, t)
	default:
		return Result{Method: m}, &Error{Kind: UnknownBackend, Op: "create", Path: job.Dst}
	}
	return t.finish(), err
}

func createBlocks(m Method, job CreateJob, gen GeneratorFunc, opts Options, t *tally) (err error) {
	var rg *platform.Ring
	if m == Ring {
		rg, err = platform.NewRing(ringEntries(opts))
		if err != nil {
			return &Error{Kind: BackendUnavailable, Op: "create io_uring", Err: err}
		}
		defer rg.Close()
	}

	f, err := os.OpenFile(job.Dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return destinationError("create destination", job.Dst, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = destinationError("close destination", job.Dst, cerr)
		}
	}()

	if m == Handle || m == Ring {
		platform.Preallocate(f, job.Size)
	}

	w := newWriter(m, f, rg)
	buf := make([]byte, job.BlockSize)
	for off := int64(0); off < job.Size; off += int64(job.BlockSize) {
		gen(buf)
		t.throttle(len(buf))
		n, werr := w.writeBlock(buf, off)
		if n != len(buf) || werr != nil {
			t.shortWrite(off, len(buf), n, werr)
		}
		t.block(buf)
	}
	w.flush(t)
	return nil
}

// createMapped sizes the file, maps it and generates each block in place.
func createMapped(job CreateJob, gen GeneratorFunc, t *tally) error {
	length, err := safemath.ConvertAny[int](job.Size)
	if err != nil {
		return &Error{Kind: MappingFailed, Op: "size destination view", Path: job.Dst, Err: err}
	}

	f, err := os.OpenFile(job.Dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return destinationError("create destination", job.Dst, err)
	}
	v := &view{path: job.Dst, file: f, writable: true}
	defer func() {
		_ = v.unmap()
		_ = v.closeFile()
	}()

	if err := f.Truncate(job.Size); err != nil {
		return &Error{Kind: MappingFailed, Op: "size destination", Path: job.Dst, Err: err}
	}
	v.data, err = mmap.MapRegion(f, length, mmap.RDWR, 0, 0)
	if err != nil {
		v.data = nil
		return &Error{Kind: MappingFailed, Op: "map destination", Path: job.Dst, Err: err}
	}

	err = guard([]*view{v}, func() {
		out := []byte(v.data)
		for off := 0; off < len(out); off += job.BlockSize {
			block := out[off : off+job.BlockSize : off+job.BlockSize]
			gen(block)
			t.throttle(len(block))
			t.block(block)
		}
	})
	if err != nil {
		return err
	}

	if err := v.data.Flush(); err != nil {
		return &Error{Kind: MappedIOFault, Op: "flush destination view", Path: job.Dst, Err: err}
	}
	if err := v.unmap(); err != nil {
		return &Error{Kind: MappingFailed, Op: "unmap destination", Path: job.Dst, Err: err}
	}
	if err := v.closeFile(); err != nil {
		return destinationError("close destination", job.Dst, err)
	}
	return nil
}
