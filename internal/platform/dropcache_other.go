//go:build !linux && !darwin

package platform

import "os"

// DropCache opens and closes path. There is no portable eviction call; the
// open still surfaces a missing or unreadable file.
func DropCache(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
