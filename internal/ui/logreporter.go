package ui

import (
	"context"
	"log/slog"

	"github.com/bamsammich/blockio/internal/event"
)

// LogReporter writes engine events to a structured logger. Routine progress
// logs at debug, outcomes at info, degraded writes at warn, and failures at
// error.
type LogReporter struct {
	Logger *slog.Logger
}

// NewLogReporter returns a LogReporter, falling back to slog.Default when
// logger is nil.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{Logger: logger}
}

// Report implements engine.Reporter.
func (r *LogReporter) Report(ev event.Event) {
	level := eventLevel(ev.Type)
	ctx := context.Background()
	if !r.Logger.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{slog.String("type", ev.Type.String())}
	if ev.Backend != "" {
		attrs = append(attrs, slog.String("backend", ev.Backend))
	}
	if ev.Src != "" {
		attrs = append(attrs, slog.String("src", ev.Src))
	}
	if ev.Dst != "" {
		attrs = append(attrs, slog.String("dst", ev.Dst))
	}

	switch ev.Type {
	case event.ShortWrite:
		attrs = append(attrs,
			slog.Int64("offset", ev.Offset),
			slog.Int("want", ev.Want),
			slog.Int("got", ev.Got),
		)
	case event.EarlyStop, event.JobCompleted:
		attrs = append(attrs,
			slog.Int64("blocks", ev.Blocks),
			slog.Int64("bytes", ev.Bytes),
			slog.Duration("elapsed", ev.Elapsed),
		)
		if ev.Elapsed > 0 {
			attrs = append(attrs, slog.String("rate", FormatRate(float64(ev.Bytes)/ev.Elapsed.Seconds())))
		}
	case event.MappedFault, event.JobFailed:
		attrs = append(attrs, slog.Int64("blocks", ev.Blocks))
	}
	if ev.Error != nil {
		attrs = append(attrs, slog.String("error", ev.Error.Error()))
	}

	r.Logger.LogAttrs(ctx, level, eventMessage(ev.Type), attrs...)
}

func eventLevel(t event.Type) slog.Level {
	switch t {
	case event.JobStarted, event.CacheCleared:
		return slog.LevelDebug
	case event.ShortWrite:
		return slog.LevelWarn
	case event.MappedFault, event.JobFailed, event.VerifyFailed:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func eventMessage(t event.Type) string {
	switch t {
	case event.JobStarted:
		return "job started"
	case event.ShortWrite:
		return "short write"
	case event.EarlyStop:
		return "transform stopped early"
	case event.MappedFault:
		return "in-page I/O fault on mapped view"
	case event.JobCompleted:
		return "job completed"
	case event.JobFailed:
		return "job failed"
	case event.VerifyOK:
		return "verify ok"
	case event.VerifyFailed:
		return "verify mismatch"
	case event.CacheCleared:
		return "cache cleared"
	default:
		return "event"
	}
}
