//go:build !unix

package platform

import (
	"errors"
	"io"
)

func (h *Handle) pread(p []byte, off int64) (int, error) {
	n, err := h.f.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (h *Handle) pwrite(p []byte, off int64) (int, error) {
	return h.f.WriteAt(p, off)
}
