package backend

import "github.com/bamsammich/blockio/internal/platform"

// handleReader issues one positional read per block on the raw descriptor.
type handleReader struct {
	h *platform.Handle
}

func (h handleReader) readBlock(p []byte, off int64) (int, error) {
	return h.h.ReadBlock(p, off)
}

// handleWriter issues one positional write per block on the raw descriptor.
type handleWriter struct {
	h *platform.Handle
}

func (h handleWriter) writeBlock(p []byte, off int64) (int, error) {
	return h.h.WriteBlock(p, off)
}

func (handleWriter) flush(*tally) {}
