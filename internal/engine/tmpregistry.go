package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// tmpSuffix marks staged outputs that have not been renamed into place yet.
const tmpSuffix = ".blockio-tmp"

// globalTmpRegistry tracks staged outputs so an interrupted process can
// remove them on the way out.
var globalTmpRegistry = &tmpRegistry{}

type tmpRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// tmpPathFor returns a unique staging path next to dst.
func tmpPathFor(dst string) string {
	name := fmt.Sprintf(".%s.%s%s", filepath.Base(dst), uuid.New().String()[:8], tmpSuffix)
	return filepath.Join(filepath.Dir(dst), name)
}

// RegisterTmp adds a staging path to the global registry.
func RegisterTmp(path string) {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	if globalTmpRegistry.paths == nil {
		globalTmpRegistry.paths = make(map[string]struct{})
	}
	globalTmpRegistry.paths[path] = struct{}{}
}

// DeregisterTmp removes a staging path from the global registry.
func DeregisterTmp(path string) {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	delete(globalTmpRegistry.paths, path)
}

// PendingTmp returns the number of registered staging paths.
func PendingTmp() int {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	return len(globalTmpRegistry.paths)
}

// CleanupTmpFiles removes every registered staging file.
func CleanupTmpFiles() {
	globalTmpRegistry.mu.Lock()
	paths := make([]string, 0, len(globalTmpRegistry.paths))
	for p := range globalTmpRegistry.paths {
		paths = append(paths, p)
	}
	globalTmpRegistry.paths = nil
	globalTmpRegistry.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
