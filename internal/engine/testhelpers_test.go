package engine

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/blockio/internal/event"
)

// writeRandom creates a file of n random bytes and returns its content.
func writeRandom(t *testing.T, path string, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

// collectEvents returns a Reporter that records every event and a getter
// returning a copy of what has been recorded so far. The getter may be called
// any number of times, and jobs may keep reporting after it is called.
func collectEvents(t *testing.T) (Reporter, func() []event.Event) {
	t.Helper()
	var (
		mu        sync.Mutex
		collected []event.Event
	)
	record := ReporterFunc(func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		collected = append(collected, ev)
	})
	return record, func() []event.Event {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(collected)
	}
}

// eventTypes returns the type of each event, in order.
func eventTypes(events []event.Event) []event.Type {
	types := make([]event.Type, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

// findTmpFiles returns any staged outputs found under root.
func findTmpFiles(t *testing.T, root string) []string {
	t.Helper()
	var found []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(d.Name(), tmpSuffix) {
			found = append(found, path)
		}
		return nil
	})
	require.NoError(t, err)
	return found
}
