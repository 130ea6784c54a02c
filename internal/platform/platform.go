// Package platform holds the OS-specific primitives the block backends are
// built on: positional handle I/O, preallocation, page cache eviction and a
// minimal io_uring ring.
package platform

import (
	"os"
)

// Handle performs positional block I/O directly on a file descriptor,
// bypassing any user-space buffering.
type Handle struct {
	f  *os.File
	fd uintptr
}

// NewHandle wraps an open file. The file stays owned by the caller.
func NewHandle(f *os.File) *Handle {
	return &Handle{f: f, fd: f.Fd()}
}

// Fd returns the raw descriptor.
func (h *Handle) Fd() uintptr {
	return h.fd
}

// ReadBlock fills p from offset off. It returns fewer than len(p) bytes only
// at end of file; a nil error with n == 0 means off is at or past EOF.
func (h *Handle) ReadBlock(p []byte, off int64) (int, error) {
	var read int
	for read < len(p) {
		n, err := h.pread(p[read:], off+int64(read))
		if err != nil {
			return read, err
		}
		if n == 0 {
			break
		}
		read += n
	}
	return read, nil
}

// WriteBlock writes p at offset off, retrying partial writes until all of p
// is written or the OS reports an error.
func (h *Handle) WriteBlock(p []byte, off int64) (int, error) {
	var written int
	for written < len(p) {
		n, err := h.pwrite(p[written:], off+int64(written))
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			break
		}
	}
	return written, nil
}
