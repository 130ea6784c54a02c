package backend

import (
	"errors"
	"os"

	"github.com/edsrzf/mmap-go"
	"go.dw1.io/safemath"
)

// mappedBackend maps the whole source read-only and the whole destination
// read-write and transforms directly between the two views. No data passes
// through private buffers.
//
// Resources are acquired in the order source handle, destination handle,
// source view, destination view and released in reverse. A zero-length
// source maps nothing and yields an empty destination.
type mappedBackend struct {
	opts Options
	job  Job
	size int64
	src  view
	dst  view
}

func (m *mappedBackend) Method() Method { return Mapped }

func (m *mappedBackend) Open(job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if m.src.file != nil {
		return &Error{Kind: InvalidJob, Op: "open", Path: job.Src, Err: errors.New("backend already open")}
	}
	m.job = job

	src, size, err := openSource(job.Src)
	if err != nil {
		return err
	}
	m.src = view{path: job.Src, file: src}
	m.size = size

	dst, err := os.OpenFile(job.Dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = m.Close()
		return destinationError("open destination", job.Dst, err)
	}
	m.dst = view{path: job.Dst, file: dst, writable: true}

	if size == 0 {
		return nil
	}

	if err := m.mapViews(size); err != nil {
		_ = m.Close()
		return err
	}
	return nil
}

func (m *mappedBackend) mapViews(size int64) error {
	length, err := safemath.ConvertAny[int](size)
	if err != nil {
		return &Error{Kind: MappingFailed, Op: "size source view", Path: m.job.Src, Err: err}
	}

	m.src.data, err = mmap.MapRegion(m.src.file, length, mmap.RDONLY, 0, 0)
	if err != nil {
		m.src.data = nil
		return &Error{Kind: MappingFailed, Op: "map source", Path: m.job.Src, Err: err}
	}

	// The destination must span the full length before it can be mapped.
	if err := m.dst.file.Truncate(size); err != nil {
		return &Error{Kind: MappingFailed, Op: "size destination", Path: m.job.Dst, Err: err}
	}
	m.dst.data, err = mmap.MapRegion(m.dst.file, length, mmap.RDWR, 0, 0)
	if err != nil {
		m.dst.data = nil
		return &Error{Kind: MappingFailed, Op: "map destination", Path: m.job.Dst, Err: err}
	}
	return nil
}

// Run transforms block by block between the views. Only a loop that runs to
// the end (or to a requested stop) releases the resources and reports
// success; a fault tears everything down and returns MappedIOFault.
func (m *mappedBackend) Run(fn TransformFunc) (Result, error) {
	t := newTally(Mapped, m.opts)
	if m.src.file == nil || m.dst.file == nil {
		return t.finish(), &Error{Kind: InvalidJob, Op: "run", Err: errNotOpen}
	}

	if m.size > 0 {
		err := guard([]*view{&m.src, &m.dst}, func() {
			m.iterate(fn, t)
		})
		if err != nil {
			_ = m.Close()
			return t.finish(), err
		}
	}

	keep := int64(-1)
	if t.res.EarlyStop {
		keep = t.res.Bytes
	}
	return t.finish(), m.complete(keep)
}

func (m *mappedBackend) iterate(fn TransformFunc, t *tally) {
	in, out := []byte(m.src.data), []byte(m.dst.data)
	bs := m.job.BlockSize
	for off := 0; off < len(in); {
		end := off + min(bs, len(in)-off)
		if !fn(in[off:end:end], out[off:end:end]) {
			t.res.EarlyStop = true
			return
		}
		t.throttle(end - off)
		t.block(out[off:end])
		off = end
	}
}

// complete flushes the destination view and releases everything. A
// non-negative keep truncates the destination to that many bytes once it is
// unmapped.
func (m *mappedBackend) complete(keep int64) error {
	if m.dst.data != nil {
		if err := m.dst.data.Flush(); err != nil {
			_ = m.Close()
			return &Error{Kind: MappedIOFault, Op: "flush destination view", Path: m.job.Dst, Err: err}
		}
	}

	var errs []error
	if err := m.dst.unmap(); err != nil {
		errs = append(errs, &Error{Kind: MappingFailed, Op: "unmap destination", Path: m.job.Dst, Err: err})
	}
	if err := m.src.unmap(); err != nil {
		errs = append(errs, &Error{Kind: MappingFailed, Op: "unmap source", Path: m.job.Src, Err: err})
	}
	if keep >= 0 && m.dst.file != nil {
		if err := m.dst.file.Truncate(keep); err != nil {
			errs = append(errs, destinationError("truncate destination", m.job.Dst, err))
		}
	}
	if err := m.closeFiles(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the destination view, the source view, the destination
// handle and the source handle, in that order.
func (m *mappedBackend) Close() error {
	var errs []error
	if err := m.dst.unmap(); err != nil {
		errs = append(errs, &Error{Kind: MappingFailed, Op: "unmap destination", Path: m.job.Dst, Err: err})
	}
	if err := m.src.unmap(); err != nil {
		errs = append(errs, &Error{Kind: MappingFailed, Op: "unmap source", Path: m.job.Src, Err: err})
	}
	if err := m.closeFiles(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *mappedBackend) closeFiles() error {
	var errs []error
	if err := m.dst.closeFile(); err != nil {
		errs = append(errs, destinationError("close destination", m.job.Dst, err))
	}
	if err := m.src.closeFile(); err != nil {
		errs = append(errs, sourceError("close source", m.job.Src, err))
	}
	return errors.Join(errs...)
}
