package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector aggregates job outcomes using lock-free atomic counters. One
// collector may be shared by jobs running on different goroutines.
type Collector struct {
	jobsRun     atomic.Int64
	jobsFailed  atomic.Int64
	earlyStops  atomic.Int64
	blocks      atomic.Int64
	bytes       atomic.Int64
	shortWrites atomic.Int64
	faults      atomic.Int64
	busy        atomic.Int64 // summed job wall time, nanoseconds
	startTime   time.Time
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	JobsRun     int64
	JobsFailed  int64
	EarlyStops  int64
	Blocks      int64
	Bytes       int64
	ShortWrites int64
	Faults      int64
	Busy        time.Duration
	Elapsed     time.Duration
}

func (c *Collector) AddJobsRun(n int64)     { c.jobsRun.Add(n) }
func (c *Collector) AddJobsFailed(n int64)  { c.jobsFailed.Add(n) }
func (c *Collector) AddEarlyStops(n int64)  { c.earlyStops.Add(n) }
func (c *Collector) AddBlocks(n int64)      { c.blocks.Add(n) }
func (c *Collector) AddBytes(n int64)       { c.bytes.Add(n) }
func (c *Collector) AddShortWrites(n int64) { c.shortWrites.Add(n) }
func (c *Collector) AddFaults(n int64)      { c.faults.Add(n) }
func (c *Collector) AddBusy(d time.Duration) { c.busy.Add(int64(d)) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		JobsRun:     c.jobsRun.Load(),
		JobsFailed:  c.jobsFailed.Load(),
		EarlyStops:  c.earlyStops.Load(),
		Blocks:      c.blocks.Load(),
		Bytes:       c.bytes.Load(),
		ShortWrites: c.shortWrites.Load(),
		Faults:      c.faults.Load(),
		Busy:        time.Duration(c.busy.Load()),
		Elapsed:     c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

// Throughput returns bytes per second of job wall time.
func (s Snapshot) Throughput() float64 {
	if s.Busy <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Busy.Seconds()
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"jobs=%d failed=%d early_stops=%d blocks=%d bytes=%d short_writes=%d faults=%d",
		s.JobsRun, s.JobsFailed, s.EarlyStops, s.Blocks,
		s.Bytes, s.ShortWrites, s.Faults,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
