package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/blockio/internal/event"
)

// ErrMismatch is returned by Verify when the two files differ.
var ErrMismatch = errors.New("content mismatch")

// VerifyResult holds the outcome of comparing two files.
type VerifyResult struct {
	Src     string
	Dst     string
	SrcHash string
	DstHash string
}

// Match reports whether both digests are equal.
func (r VerifyResult) Match() bool {
	return r.SrcHash != "" && r.SrcHash == r.DstHash
}

// Verify hashes src and dst concurrently with BLAKE3 and compares the
// digests. It returns ErrMismatch when they differ.
func (e *Engine) Verify(ctx context.Context, src, dst string) (VerifyResult, error) {
	result := VerifyResult{Src: src, Dst: dst}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := HashFile(gctx, src)
		result.SrcHash = h
		return err
	})
	g.Go(func() error {
		h, err := HashFile(gctx, dst)
		result.DstHash = h
		return err
	})

	err := g.Wait()
	if err == nil && !result.Match() {
		err = ErrMismatch
	}

	if err != nil {
		e.emit(event.Event{Type: event.VerifyFailed, Src: src, Dst: dst, Error: err})
		return result, err
	}
	e.emit(event.Event{Type: event.VerifyOK, Src: src, Dst: dst})
	return result, nil
}
