// Package backend implements the block-wise file transform contract over
// several I/O strategies: buffered streams, unbuffered streams, positional
// handle I/O, io_uring and memory-mapped views.
//
// Every backend reads the source in fixed-size blocks, passes each block
// through a TransformFunc and writes the result at the same offset of the
// destination. The last block may be shorter than the block size.
package backend

import "fmt"

// Backend runs one job at a time. Open acquires every resource the job needs,
// Run performs the block loop, Close releases whatever is still held and may
// be called any number of times.
type Backend interface {
	Method() Method
	Open(job Job) error
	Run(fn TransformFunc) (Result, error)
	Close() error
}

// New constructs a backend for m.
func New(m Method, opts Options) (Backend, error) {
	switch m {
	case Buffered, Stream, Handle, Ring:
		return &pipeline{method: m, opts: opts}, nil
	case Mapped:
		return &mappedBackend{opts: opts}, nil
	default:
		return nil, &Error{Kind: UnknownBackend, Op: "new backend", Err: fmt.Errorf("method %d", int(m))}
	}
}

// Transform resolves tag and runs job with fn. See Run.
func Transform(tag string, job Job, fn TransformFunc, opts Options) (Result, error) {
	m, err := ParseMethod(tag)
	if err != nil {
		return Result{}, err
	}
	return Run(m, job, fn, opts)
}

// Run opens a backend for m, runs job with fn and releases the backend.
func Run(m Method, job Job, fn TransformFunc, opts Options) (Result, error) {
	b, err := New(m, opts)
	if err != nil {
		return Result{}, err
	}
	defer b.Close()

	if err := b.Open(job); err != nil {
		return Result{Method: m}, err
	}
	return b.Run(fn)
}
