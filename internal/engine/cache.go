package engine

import (
	"fmt"

	"github.com/bamsammich/blockio/internal/event"
	"github.com/bamsammich/blockio/internal/platform"
)

// ClearCache evicts path's pages from the OS page cache so the next job reads
// from the device. Dirty pages are written back first.
func (e *Engine) ClearCache(path string) error {
	if err := platform.DropCache(path); err != nil {
		return fmt.Errorf("clear cache %s: %w", path, err)
	}
	e.emit(event.Event{Type: event.CacheCleared, Src: path})
	return nil
}
