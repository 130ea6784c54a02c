// Package engine is the single entry point for running block jobs. It
// resolves backend tags, stages outputs so a failed job never leaves a
// partial destination behind, and reports every outcome as an event.
package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/time/rate"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/event"
	"github.com/bamsammich/blockio/internal/stats"
)

// Config controls how the engine runs jobs. The zero value stages outputs,
// takes no lock and runs unthrottled.
type Config struct {
	// InPlace makes backends write the destination directly instead of a
	// staged temporary that is renamed on success.
	InPlace bool
	// Lock takes an exclusive advisory lock on <dst>.lock for each job.
	Lock bool
	// BWLimit caps throughput in bytes per second. Zero is unlimited.
	BWLimit int64
	// Checksum asks backends for an xxhash digest of the bytes produced.
	Checksum bool
	// RingEntries sizes io_uring queues for the uring backend.
	RingEntries uint

	Reporter Reporter
	Stats    *stats.Collector
}

// Engine runs transform and creation jobs. It is safe for concurrent use by
// jobs on distinct destinations.
type Engine struct {
	cfg     Config
	limiter *rate.Limiter
	stats   *stats.Collector
}

// New creates an engine.
func New(cfg Config) *Engine {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	return &Engine{
		cfg:     cfg,
		limiter: NewBWLimiter(cfg.BWLimit),
		stats:   collector,
	}
}

// Stats returns the counters accumulated over every job run so far.
func (e *Engine) Stats() stats.Snapshot {
	return e.stats.Snapshot()
}

func (e *Engine) options() backend.Options {
	return backend.Options{
		Limiter:     e.limiter,
		Checksum:    e.cfg.Checksum,
		RingEntries: e.cfg.RingEntries,
	}
}

// Transform runs job on the backend named by tag. Unknown tags fail with
// backend.ErrUnknownBackend before the filesystem is touched. A nil error
// means the job completed, possibly stopped early by fn.
func (e *Engine) Transform(tag string, job backend.Job, fn backend.TransformFunc) (backend.Result, error) {
	m, err := backend.ParseMethod(tag)
	if err != nil {
		return backend.Result{}, e.reject(tag, job.Src, job.Dst, err)
	}
	if err := job.Validate(); err != nil {
		return backend.Result{Method: m}, e.reject(tag, job.Src, job.Dst, err)
	}
	if fn == nil {
		err := &backend.Error{Kind: backend.InvalidJob, Op: "validate job", Err: errors.New("transform is required")}
		return backend.Result{Method: m}, e.reject(tag, job.Src, job.Dst, err)
	}
	if e.cfg.InPlace && sameFile(job.Src, job.Dst) {
		err := &backend.Error{Kind: backend.InvalidJob, Op: "validate job", Path: job.Dst,
			Err: errors.New("in-place transform onto the source would truncate it")}
		return backend.Result{Method: m}, e.reject(tag, job.Src, job.Dst, err)
	}

	e.emit(event.Event{Type: event.JobStarted, Backend: m.String(), Src: job.Src, Dst: job.Dst})

	out, err := e.stage(job.Dst)
	if err != nil {
		res := backend.Result{Method: m}
		e.finish(res, job.Src, job.Dst, err)
		return res, err
	}
	defer out.release()

	staged := job
	staged.Dst = out.path
	res, err := backend.Run(m, staged, fn, e.options())
	if err == nil {
		err = out.commit()
	}
	err = out.rewrite(err)
	e.finish(res, job.Src, job.Dst, err)
	return res, err
}

// Create writes a new file of job.Size bytes with the backend named by tag.
// The filesystem must have room for the whole file before anything is
// written.
func (e *Engine) Create(tag string, job backend.CreateJob, gen backend.GeneratorFunc) (backend.Result, error) {
	m, err := backend.ParseMethod(tag)
	if err != nil {
		return backend.Result{}, e.reject(tag, "", job.Dst, err)
	}
	if err := job.Validate(); err != nil {
		return backend.Result{Method: m}, e.reject(tag, "", job.Dst, err)
	}
	if gen == nil {
		gen = backend.Zero
	}

	e.emit(event.Event{Type: event.JobStarted, Backend: m.String(), Dst: job.Dst})

	if err := checkFreeSpace(job.Dst, job.Size); err != nil {
		res := backend.Result{Method: m}
		e.finish(res, "", job.Dst, err)
		return res, err
	}

	out, err := e.stage(job.Dst)
	if err != nil {
		res := backend.Result{Method: m}
		e.finish(res, "", job.Dst, err)
		return res, err
	}
	defer out.release()

	staged := job
	staged.Dst = out.path
	res, err := backend.Create(m, staged, gen, e.options())
	if err == nil {
		err = out.commit()
	}
	err = out.rewrite(err)
	e.finish(res, "", job.Dst, err)
	return res, err
}

// reject accounts for a job refused before it started.
func (e *Engine) reject(tag, src, dst string, err error) error {
	e.stats.AddJobsRun(1)
	e.stats.AddJobsFailed(1)
	e.emit(event.Event{Type: event.JobFailed, Backend: tag, Src: src, Dst: dst, Error: err})
	return err
}

func (e *Engine) finish(res backend.Result, src, dst string, err error) {
	tag := res.Method.String()
	for _, w := range res.Warnings {
		e.emit(event.Event{
			Type:    event.ShortWrite,
			Backend: tag,
			Src:     src,
			Dst:     dst,
			Offset:  w.Offset,
			Want:    w.Want,
			Got:     w.Got,
			Error:   w.Err,
		})
	}

	e.stats.AddJobsRun(1)
	e.stats.AddBlocks(res.Blocks)
	e.stats.AddBytes(res.Bytes)
	e.stats.AddShortWrites(res.ShortWrites)
	e.stats.AddBusy(res.Elapsed)

	done := event.Event{
		Backend: tag,
		Src:     src,
		Dst:     dst,
		Blocks:  res.Blocks,
		Bytes:   res.Bytes,
		Elapsed: res.Elapsed,
	}

	if err != nil {
		e.stats.AddJobsFailed(1)
		if errors.Is(err, backend.ErrMappedIOFault) {
			e.stats.AddFaults(1)
			fault := done
			fault.Type = event.MappedFault
			fault.Error = err
			e.emit(fault)
		}
		done.Type = event.JobFailed
		done.Error = err
		e.emit(done)
		return
	}

	if res.EarlyStop {
		e.stats.AddEarlyStops(1)
		stop := done
		stop.Type = event.EarlyStop
		e.emit(stop)
	}
	done.Type = event.JobCompleted
	e.emit(done)
}

// output is where a backend writes. Staged outputs are renamed over the
// destination on commit and removed on release otherwise.
type output struct {
	dst       string
	path      string
	staged    bool
	committed bool
	lock      *flock.Flock
}

func (e *Engine) stage(dst string) (*output, error) {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		return nil, &backend.Error{Kind: backend.DestinationUnwritable, Op: "open destination", Path: dst,
			Err: errors.New("is a directory")}
	}

	o := &output{dst: dst, path: dst}
	if e.cfg.Lock {
		fl, err := lockDestination(dst)
		if err != nil {
			return nil, err
		}
		o.lock = fl
	}
	if !e.cfg.InPlace {
		o.path = tmpPathFor(dst)
		o.staged = true
		RegisterTmp(o.path)
	}
	return o, nil
}

func (o *output) commit() error {
	if !o.staged {
		return nil
	}
	if err := os.Rename(o.path, o.dst); err != nil {
		return &backend.Error{Kind: backend.DestinationUnwritable, Op: "rename staged output", Path: o.dst, Err: err}
	}
	o.committed = true
	return nil
}

// rewrite reports failures against the destination rather than the staging
// path.
func (o *output) rewrite(err error) error {
	var be *backend.Error
	if o.staged && errors.As(err, &be) && be.Path == o.path {
		be.Path = o.dst
	}
	return err
}

func (o *output) release() {
	if o.staged {
		DeregisterTmp(o.path)
		if !o.committed {
			_ = os.Remove(o.path)
		}
	}
	if o.lock != nil {
		_ = o.lock.Unlock()
	}
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// Summary describes a job result in one line.
func Summary(res backend.Result) string {
	s := fmt.Sprintf("%s: %d blocks, %s in %s", res.Method, res.Blocks, stats.FormatBytes(res.Bytes), res.Elapsed.Round(time.Millisecond))
	if res.EarlyStop {
		s += " (stopped early)"
	}
	if res.ShortWrites > 0 {
		s += fmt.Sprintf(", %d short writes", res.ShortWrites)
	}
	return s
}
