//go:build !linux

package platform

import (
	"errors"
	"fmt"
)

// Ring is unavailable on non-Linux platforms.
type Ring struct{}

// NewRing always fails with errors.ErrUnsupported on non-Linux platforms.
func NewRing(_ uint) (*Ring, error) {
	return nil, fmt.Errorf("io_uring: %w", errors.ErrUnsupported)
}

func (rg *Ring) Close() error { return nil }

func (rg *Ring) ReadBlock(_ uintptr, _ []byte, _ int64) (int, error) {
	return 0, errors.ErrUnsupported
}

func (rg *Ring) WriteBlock(_ uintptr, _ []byte, _ int64) (int, error) {
	return 0, errors.ErrUnsupported
}

// RingSupported always returns false on non-Linux platforms.
func RingSupported() bool {
	return false
}
