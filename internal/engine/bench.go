package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bamsammich/blockio/internal/backend"
)

// BenchConfig describes a benchmark: one transform of Src per method per run.
type BenchConfig struct {
	Src       string
	Dir       string // where outputs are written; defaults to Src's directory
	BlockSize int
	Methods   []backend.Method // defaults to every method
	Runs      int              // defaults to 1
	// ClearCache evicts Src from the page cache before every run.
	ClearCache bool
	Transform  backend.TransformFunc // defaults to backend.Copy
}

// BenchResult is one measured transform.
type BenchResult struct {
	Method    backend.Method
	Run       int
	BlockSize int
	Blocks    int64
	Bytes     int64
	Elapsed   time.Duration
	Err       error
}

// Throughput returns bytes per second, or 0 for failed runs.
func (r BenchResult) Throughput() float64 {
	if r.Err != nil || r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds()
}

// Bench runs cfg and returns one row per method per run. A method that fails
// (for example uring on a kernel without io_uring) yields a row carrying the
// error; Bench itself fails only when it cannot run at all.
func (e *Engine) Bench(ctx context.Context, cfg BenchConfig) ([]BenchResult, error) {
	info, err := os.Stat(cfg.Src)
	if err != nil {
		return nil, fmt.Errorf("bench source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("bench source %s is not a regular file", cfg.Src)
	}
	if cfg.BlockSize <= 0 {
		return nil, errors.New("bench block size must be positive")
	}

	methods := cfg.Methods
	if len(methods) == 0 {
		methods = backend.Methods
	}
	runs := max(cfg.Runs, 1)
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Dir(cfg.Src)
	}
	fn := cfg.Transform
	if fn == nil {
		fn = backend.Copy
	}

	results := make([]BenchResult, 0, runs*len(methods))
	for run := 1; run <= runs; run++ {
		for _, m := range methods {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			if cfg.ClearCache {
				if err := e.ClearCache(cfg.Src); err != nil {
					return results, err
				}
			}

			dst := filepath.Join(dir, fmt.Sprintf(".blockio-bench-%s-%s", m, uuid.New().String()[:8]))
			res, err := e.Transform(m.String(), backend.Job{Src: cfg.Src, Dst: dst, BlockSize: cfg.BlockSize}, fn)
			_ = os.Remove(dst)

			results = append(results, BenchResult{
				Method:    m,
				Run:       run,
				BlockSize: cfg.BlockSize,
				Blocks:    res.Blocks,
				Bytes:     res.Bytes,
				Elapsed:   res.Elapsed,
				Err:       err,
			})
		}
	}
	return results, nil
}
