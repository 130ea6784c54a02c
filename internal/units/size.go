// Package units parses human-readable byte sizes.
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
	TiB int64 = 1 << 40
)

// ParseSize parses a human-readable size string into bytes.
// Supports: 100, 100B, 100K, 100M, 100G, 100T (case-insensitive).
// Uses powers of 1024.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Determine the multiplier suffix.
	multiplier := int64(1)
	numStr := s

	last := strings.ToUpper(s[len(s)-1:])
	switch last {
	case "B":
		numStr = s[:len(s)-1]
	case "K":
		multiplier = KiB
		numStr = s[:len(s)-1]
	case "M":
		multiplier = MiB
		numStr = s[:len(s)-1]
	case "G":
		multiplier = GiB
		numStr = s[:len(s)-1]
	case "T":
		multiplier = TiB
		numStr = s[:len(s)-1]
	default:
		// No suffix, try parsing as plain number.
	}

	if numStr == "" {
		return 0, fmt.Errorf("invalid size: %q", s)
	}

	// Try integer first, then float.
	if n, err := strconv.ParseInt(numStr, 10, 64); err == nil {
		return Scale(n, multiplier)
	}

	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	v := f * float64(multiplier)
	if v >= math.MaxInt64 || v <= math.MinInt64 {
		return 0, fmt.Errorf("size out of range: %q", s)
	}
	return int64(v), nil
}

// ParseSizeDefault parses s like ParseSize, but a bare number is scaled by
// unit instead of being taken as bytes. It backs positional arguments such
// as "<sizeInMB>" that also accept explicit suffixes.
func ParseSizeDefault(s string, unit int64) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Scale(n, unit)
	}
	return ParseSize(s)
}

// Scale returns n*unit, failing instead of overflowing.
func Scale(n, unit int64) (int64, error) {
	if n != 0 && unit != 0 {
		if (n > 0) == (unit > 0) {
			if n > math.MaxInt64/abs(unit) {
				return 0, fmt.Errorf("size overflows int64: %d x %d", n, unit)
			}
		} else if abs(n) > math.MaxInt64/abs(unit) {
			return 0, fmt.Errorf("size overflows int64: %d x %d", n, unit)
		}
	}
	return n * unit, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
