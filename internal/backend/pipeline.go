package backend

import (
	"errors"
	"fmt"
	"os"

	"github.com/bamsammich/blockio/internal/platform"
)

const defaultRingEntries = 8

// pipeline is the backend for every method that moves blocks through private
// buffers. The methods differ only in their reader and writer.
type pipeline struct {
	method Method
	opts   Options
	job    Job

	ring *platform.Ring
	src  *os.File
	dst  *os.File

	r blockReader
	w blockWriter
}

func (p *pipeline) Method() Method { return p.method }

// Open acquires the ring (for Ring), the source and the destination, in that
// order. On failure everything acquired so far is released.
func (p *pipeline) Open(job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if p.src != nil {
		return &Error{Kind: InvalidJob, Op: "open", Path: job.Src, Err: errors.New("backend already open")}
	}
	p.job = job

	if p.method == Ring {
		rg, err := platform.NewRing(ringEntries(p.opts))
		if err != nil {
			return &Error{Kind: BackendUnavailable, Op: "create io_uring", Err: err}
		}
		p.ring = rg
	}

	src, _, err := openSource(job.Src)
	if err != nil {
		_ = p.Close()
		return err
	}
	p.src = src

	dst, err := os.OpenFile(job.Dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		_ = p.Close()
		return destinationError("open destination", job.Dst, err)
	}
	p.dst = dst

	p.r = newReader(p.method, src, p.ring)
	p.w = newWriter(p.method, dst, p.ring)
	return nil
}

func (p *pipeline) Run(fn TransformFunc) (Result, error) {
	t := newTally(p.method, p.opts)
	if p.r == nil || p.w == nil {
		return t.finish(), &Error{Kind: InvalidJob, Op: "run", Err: errNotOpen}
	}
	err := iterate(p.r, p.w, p.job, fn, t)
	return t.finish(), err
}

// Close releases the destination, the source and the ring, in that order.
func (p *pipeline) Close() error {
	var errs []error
	if p.dst != nil {
		if err := p.dst.Close(); err != nil {
			errs = append(errs, destinationError("close destination", p.job.Dst, err))
		}
		p.dst = nil
	}
	if p.src != nil {
		if err := p.src.Close(); err != nil {
			errs = append(errs, sourceError("close source", p.job.Src, err))
		}
		p.src = nil
	}
	if p.ring != nil {
		if err := p.ring.Close(); err != nil {
			errs = append(errs, err)
		}
		p.ring = nil
	}
	p.r, p.w = nil, nil
	return errors.Join(errs...)
}

func newReader(m Method, f *os.File, rg *platform.Ring) blockReader {
	switch m {
	case Buffered:
		return newBufferedReader(f)
	case Handle:
		return handleReader{platform.NewHandle(f)}
	case Ring:
		return ringReader{ring: rg, fd: f.Fd()}
	default:
		return streamReader{f}
	}
}

func newWriter(m Method, f *os.File, rg *platform.Ring) blockWriter {
	switch m {
	case Buffered:
		return newBufferedWriter(f)
	case Handle:
		return handleWriter{platform.NewHandle(f)}
	case Ring:
		return ringWriter{ring: rg, fd: f.Fd()}
	default:
		return streamWriter{f}
	}
}

func ringEntries(opts Options) uint {
	if opts.RingEntries == 0 {
		return defaultRingEntries
	}
	return opts.RingEntries
}

// openSource opens path for reading and returns its size. Directories and
// other non-regular files are rejected as unreadable.
func openSource(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, sourceError("open source", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, sourceError("stat source", path, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, &Error{Kind: SourceUnreadable, Op: "open source", Path: path, Err: fmt.Errorf("not a regular file (%s)", info.Mode().Type())}
	}
	return f, info.Size(), nil
}
