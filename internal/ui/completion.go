package ui

import (
	"fmt"

	"github.com/bamsammich/blockio/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  jobs 3  blocks 14,302  size 2.1 GiB  avg 641 MB/s  time 3.28s  failed 0
// Early stops and short writes are appended only when non-zero.
func CompletionSummary(snap stats.Snapshot, styled bool) string {
	icon := "✓"
	if snap.JobsFailed > 0 {
		icon = "✗"
	}
	if styled {
		if snap.JobsFailed > 0 {
			icon = styleErr.Render(icon)
		} else {
			icon = styleOK.Render(icon)
		}
	}

	base := fmt.Sprintf("done %s  jobs %s  blocks %s  size %s  avg %s  time %s",
		icon,
		FormatCount(snap.JobsRun),
		FormatCount(snap.Blocks),
		FormatBytes(snap.Bytes),
		FormatRate(snap.Throughput()),
		FormatElapsed(snap.Busy),
	)

	if snap.EarlyStops > 0 {
		base += fmt.Sprintf("  early-stops %d", snap.EarlyStops)
	}
	if snap.ShortWrites > 0 {
		sw := fmt.Sprintf("short-writes %d", snap.ShortWrites)
		if styled {
			sw = styleWarn.Render(sw)
		}
		base += "  " + sw
	}

	base += fmt.Sprintf("  failed %d", snap.JobsFailed)
	return base
}
