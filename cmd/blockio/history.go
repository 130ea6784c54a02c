package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/blockio/internal/engine"
	"github.com/bamsammich/blockio/internal/ui"
)

// trendSamples bounds how many recent runs feed each backend's sparkline.
const trendSamples = 16

func (a *app) historyCmd() *cobra.Command {
	var (
		limit  int
		totals bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded bench runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.openHistory()
			if err != nil {
				return failed("open history", err)
			}
			defer h.Close()

			tw := ui.NewTableWriter(cmd.OutOrStdout(), ui.IsTTY(os.Stdout.Fd()))

			if totals {
				sums, err := h.Totals(cmd.Context())
				if err != nil {
					return failed("read history", err)
				}
				recent, err := h.List(cmd.Context(), 0)
				if err != nil {
					return failed("read history", err)
				}
				if err := tw.WriteTotals(sums, trends(recent)); err != nil {
					return failed("write history", err)
				}
				return nil
			}

			entries, err := h.List(cmd.Context(), limit)
			if err != nil {
				return failed("read history", err)
			}
			if err := tw.WriteHistory(entries); err != nil {
				return failed("write history", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&totals, "totals", false, "show per-backend totals instead of individual runs")
	return cmd
}

// trends groups successful throughputs by backend, oldest first, keeping
// the most recent trendSamples of each. entries arrive newest first.
func trends(entries []engine.HistoryEntry) map[string][]float64 {
	out := make(map[string][]float64)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Err != "" {
			continue
		}
		out[e.Backend] = append(out[e.Backend], e.Throughput())
	}
	for k, v := range out {
		if len(v) > trendSamples {
			out[k] = v[len(v)-trendSamples:]
		}
	}
	return out
}
