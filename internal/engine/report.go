package engine

import (
	"time"

	"github.com/bamsammich/blockio/internal/event"
)

// Reporter receives job outcomes. Report must not block for long; the engine
// calls it on the job's goroutine.
type Reporter interface {
	Report(e event.Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(e event.Event)

func (f ReporterFunc) Report(e event.Event) { f(e) }

// ChanReporter forwards events to a channel. Events are dropped when the
// channel is full so a slow consumer never stalls a job.
type ChanReporter chan<- event.Event

func (c ChanReporter) Report(e event.Event) {
	select {
	case c <- e:
	default:
	}
}

// Reporters fans every event out to each of rs.
type Reporters []Reporter

func (rs Reporters) Report(e event.Event) {
	for _, r := range rs {
		r.Report(e)
	}
}

func (e *Engine) emit(ev event.Event) {
	if e.cfg.Reporter == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.cfg.Reporter.Report(ev)
}
