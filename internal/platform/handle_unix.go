//go:build unix

package platform

import (
	"errors"

	"golang.org/x/sys/unix"
)

//nolint:gosec // G115: fd values are small non-negative integers
func (h *Handle) pread(p []byte, off int64) (int, error) {
	for {
		n, err := unix.Pread(int(h.fd), p, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}

//nolint:gosec // G115: fd values are small non-negative integers
func (h *Handle) pwrite(p []byte, off int64) (int, error) {
	for {
		n, err := unix.Pwrite(int(h.fd), p, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}
