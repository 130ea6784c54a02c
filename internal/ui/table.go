package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bamsammich/blockio/internal/engine"
)

const barWidth = 16

// TableWriter renders bench results and history either as a styled table
// for terminals or as tab-separated raw numbers for pipes.
type TableWriter struct {
	w      io.Writer
	styled bool
}

// NewTableWriter returns a TableWriter. Pass styled=true when w is a TTY.
func NewTableWriter(w io.Writer, styled bool) *TableWriter {
	return &TableWriter{w: w, styled: styled}
}

// WriteBench writes one row per bench run. Throughput bars are relative to
// the fastest successful run.
func (t *TableWriter) WriteBench(results []engine.BenchResult) error {
	if !t.styled {
		return t.tsv(
			[]string{"backend", "run", "block_size", "blocks", "bytes", "elapsed_ns", "bytes_per_sec", "error"},
			len(results),
			func(i int) []string {
				r := results[i]
				return []string{
					r.Method.String(),
					strconv.Itoa(r.Run),
					strconv.Itoa(r.BlockSize),
					strconv.FormatInt(r.Blocks, 10),
					strconv.FormatInt(r.Bytes, 10),
					strconv.FormatInt(r.Elapsed.Nanoseconds(), 10),
					strconv.FormatFloat(r.Throughput(), 'f', 0, 64),
					errString(r.Err),
				}
			},
		)
	}

	var best float64
	for _, r := range results {
		best = max(best, r.Throughput())
	}
	rows := make([][]string, 0, len(results))
	failed := make(map[int]bool)
	fastest := make(map[int]bool)
	for i, r := range results {
		if r.Err != nil {
			failed[i] = true
			rows = append(rows, []string{r.Method.String(), strconv.Itoa(r.Run), FormatBytes(int64(r.BlockSize)), "", "", "", r.Err.Error()})
			continue
		}
		tp := r.Throughput()
		if best > 0 && tp == best {
			fastest[i] = true
		}
		rows = append(rows, []string{
			r.Method.String(),
			strconv.Itoa(r.Run),
			FormatBytes(int64(r.BlockSize)),
			FormatBytes(r.Bytes),
			FormatElapsed(r.Elapsed),
			FormatRate(tp),
			ProgressBar(ratio(tp, best), barWidth),
		})
	}
	headers := []string{"BACKEND", "RUN", "BLOCK", "BYTES", "TIME", "RATE", ""}
	return t.render(headers, rows, func(row, col int) lipgloss.Style {
		switch {
		case failed[row] && col == len(headers)-1:
			return styleFailed
		case fastest[row] && col == 5:
			return styleBest
		case col == len(headers)-1:
			return styleBar
		case col >= 1 && col <= 5:
			return styleNum
		}
		return styleCell
	})
}

// WriteHistory writes recorded runs, newest first.
func (t *TableWriter) WriteHistory(entries []engine.HistoryEntry) error {
	if !t.styled {
		return t.tsv(
			[]string{"id", "at", "src", "backend", "block_size", "blocks", "bytes", "elapsed_ns", "bytes_per_sec", "error"},
			len(entries),
			func(i int) []string {
				e := entries[i]
				return []string{
					strconv.FormatInt(e.ID, 10),
					e.At.UTC().Format("2006-01-02T15:04:05Z"),
					e.Src,
					e.Backend,
					strconv.Itoa(e.BlockSize),
					strconv.FormatInt(e.Blocks, 10),
					strconv.FormatInt(e.Bytes, 10),
					strconv.FormatInt(e.Elapsed.Nanoseconds(), 10),
					strconv.FormatFloat(e.Throughput(), 'f', 0, 64),
					e.Err,
				}
			},
		)
	}

	failed := make(map[int]bool)
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rate := FormatRate(e.Throughput())
		if e.Err != "" {
			failed[i] = true
			rate = e.Err
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.At.Local().Format("2006-01-02 15:04"),
			e.Backend,
			FormatBytes(int64(e.BlockSize)),
			FormatBytes(e.Bytes),
			FormatElapsed(e.Elapsed),
			rate,
			e.Src,
		})
	}
	return t.render(
		[]string{"ID", "WHEN", "BACKEND", "BLOCK", "BYTES", "TIME", "RATE", "SOURCE"},
		rows,
		func(row, col int) lipgloss.Style {
			switch {
			case failed[row] && col == 6:
				return styleFailed
			case col == 0 || (col >= 3 && col <= 6):
				return styleNum
			}
			return styleCell
		},
	)
}

// WriteTotals writes per-backend aggregates. trend carries each backend's
// recent throughput samples, oldest first, and is drawn as a sparkline.
func (t *TableWriter) WriteTotals(totals []engine.BackendTotal, trend map[string][]float64) error {
	if !t.styled {
		return t.tsv(
			[]string{"backend", "runs", "bytes", "elapsed_ns", "bytes_per_sec"},
			len(totals),
			func(i int) []string {
				b := totals[i]
				return []string{
					b.Backend,
					strconv.FormatInt(b.Runs, 10),
					strconv.FormatInt(b.Bytes, 10),
					strconv.FormatInt(b.Elapsed.Nanoseconds(), 10),
					strconv.FormatFloat(b.Throughput(), 'f', 0, 64),
				}
			},
		)
	}

	var best float64
	for _, b := range totals {
		best = max(best, b.Throughput())
	}
	rows := make([][]string, 0, len(totals))
	for _, b := range totals {
		rows = append(rows, []string{
			b.Backend,
			FormatCount(b.Runs),
			FormatBytes(b.Bytes),
			FormatRate(b.Throughput()),
			ProgressBar(ratio(b.Throughput(), best), barWidth),
			Sparkline(trend[b.Backend], barWidth),
		})
	}
	return t.render(
		[]string{"BACKEND", "RUNS", "BYTES", "MEAN RATE", "", "TREND"},
		rows,
		func(_, col int) lipgloss.Style {
			switch {
			case col >= 4:
				return styleBar
			case col >= 1:
				return styleNum
			}
			return styleCell
		},
	)
}

func (t *TableWriter) render(headers []string, rows [][]string, cell func(row, col int) lipgloss.Style) error {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(rowStyle(cell))
	_, err := fmt.Fprintln(t.w, tbl.Render())
	return err
}

// rowStyle adapts a per-cell style over data rows to table.StyleFunc, where
// row 0 is the header and data rows start at 1.
func rowStyle(cell func(row, col int) lipgloss.Style) table.StyleFunc {
	return func(row, col int) lipgloss.Style {
		if row == 0 {
			return styleHeader
		}
		return cell(row-1, col)
	}
}

func (t *TableWriter) tsv(headers []string, n int, row func(i int) []string) error {
	if _, err := fmt.Fprintln(t.w, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for i := range n {
		if _, err := fmt.Fprintln(t.w, strings.Join(row(i), "\t")); err != nil {
			return err
		}
	}
	return nil
}

func ratio(v, best float64) float64 {
	if best <= 0 {
		return 0
	}
	return v / best
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
