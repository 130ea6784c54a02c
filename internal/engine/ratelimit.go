package engine

import "golang.org/x/time/rate"

// NewBWLimiter creates a rate.Limiter that caps throughput to bytesPerSec.
// The burst is 1 MiB so typical blocks pass in one or two waits. A
// non-positive rate returns nil, meaning unlimited.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}
