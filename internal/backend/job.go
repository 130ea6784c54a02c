package backend

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// maxWarnings caps the per-job list of individually kept short writes.
const maxWarnings = 32

// TransformFunc maps one input block to one output block of the same length.
// Returning false stops the job; the current block is then neither written
// nor counted.
type TransformFunc func(in, out []byte) bool

// GeneratorFunc fills one block of a file being created.
type GeneratorFunc func(out []byte)

// Job describes one transform: read Src block by block, transform, write Dst.
type Job struct {
	Src       string
	Dst       string
	BlockSize int
}

// Validate rejects jobs no backend can run.
func (j Job) Validate() error {
	if j.Src == "" || j.Dst == "" {
		return &Error{Kind: InvalidJob, Op: "validate job", Err: fmt.Errorf("source and destination are required")}
	}
	if j.BlockSize <= 0 {
		return &Error{Kind: InvalidJob, Op: "validate job", Err: fmt.Errorf("block size %d must be positive", j.BlockSize)}
	}
	return nil
}

// CreateJob describes one file creation: Size bytes written in BlockSize
// blocks produced by a generator.
type CreateJob struct {
	Dst       string
	Size      int64
	BlockSize int
}

// Validate rejects creations whose size is not a whole number of blocks.
func (j CreateJob) Validate() error {
	switch {
	case j.Dst == "":
		return &Error{Kind: InvalidJob, Op: "validate create", Err: fmt.Errorf("destination is required")}
	case j.BlockSize <= 0:
		return &Error{Kind: InvalidJob, Op: "validate create", Err: fmt.Errorf("block size %d must be positive", j.BlockSize)}
	case j.Size <= 0:
		return &Error{Kind: InvalidJob, Op: "validate create", Err: fmt.Errorf("size %d must be positive", j.Size)}
	case j.Size%int64(j.BlockSize) != 0:
		return &Error{Kind: InvalidJob, Op: "validate create", Err: fmt.Errorf("size %d is not a multiple of block size %d", j.Size, j.BlockSize)}
	}
	return nil
}

// Options tune how a backend runs. The zero value runs unthrottled with no
// checksum.
type Options struct {
	// Limiter, when set, throttles writes to its rate.
	Limiter *rate.Limiter
	// Checksum enables an xxhash digest of every byte produced.
	Checksum bool
	// RingEntries sizes the io_uring submission queue. Zero means 8.
	RingEntries uint
}

// Warning is a non-fatal short write.
type Warning struct {
	Offset int64
	Want   int
	Got    int
	Err    error
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("short write at %d: wrote %d of %d: %v", w.Offset, w.Got, w.Want, w.Err)
	}
	return fmt.Sprintf("short write at %d: wrote %d of %d", w.Offset, w.Got, w.Want)
}

// Result is the outcome of a job that did not fail.
type Result struct {
	Method      Method
	Blocks      int64
	Bytes       int64 // bytes that reached the destination, net of short writes
	ShortWrites int64
	Warnings    []Warning
	EarlyStop   bool
	Checksum    uint64
	Elapsed     time.Duration
}

// Throughput returns bytes per second over the job's elapsed time.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds()
}

// blockLen is the length of the block starting at off in a file of size bytes.
func blockLen(off, size int64, blockSize int) int {
	if rem := size - off; rem < int64(blockSize) {
		return int(rem)
	}
	return blockSize
}
