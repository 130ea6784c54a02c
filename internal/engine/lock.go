package engine

import (
	"errors"

	"github.com/gofrs/flock"

	"github.com/bamsammich/blockio/internal/backend"
)

var errLocked = errors.New("destination is locked by another job")

// lockDestination takes an exclusive advisory lock on <dst>.lock. The lock
// file is left in place after release.
func lockDestination(dst string) (*flock.Flock, error) {
	fl := flock.New(dst + ".lock")
	held, err := fl.TryLock()
	if err != nil {
		return nil, &backend.Error{Kind: backend.DestinationUnwritable, Op: "lock destination", Path: dst, Err: err}
	}
	if !held {
		return nil, &backend.Error{Kind: backend.DestinationUnwritable, Op: "lock destination", Path: dst, Err: errLocked}
	}
	return fl, nil
}
