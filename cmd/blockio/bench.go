package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/engine"
	"github.com/bamsammich/blockio/internal/ui"
)

func (a *app) benchCmd() *cobra.Command {
	var (
		methods       = &methodsFlag{}
		blockStr      string
		runs          int
		clearCache    bool
		record        bool
		dir           string
		transformName string
	)

	cmd := &cobra.Command{
		Use:   "bench <src>",
		Short: "Transform a file through every backend and compare throughput",
		Long: `Copy <src> through each backend in turn, optionally evicting it from the page
cache before every run, and print one row per run. A backend that is not
available on this system is reported in its row without failing the bench.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc := a.cfg.Bench
			if !cmd.Flags().Changed("backends") && len(bc.Backends) > 0 {
				for _, tag := range bc.Backends {
					if err := methods.Set(tag); err != nil {
						return fmt.Errorf("config bench.backends: %w", err)
					}
				}
			}
			if !cmd.Flags().Changed("runs") && bc.Runs != nil {
				runs = *bc.Runs
			}
			if !cmd.Flags().Changed("block") && a.cfg.Defaults.BlockSize != nil {
				blockStr = *a.cfg.Defaults.BlockSize
			}
			applyBool(cmd, "clear-cache", bc.ClearCache, &clearCache)
			applyBool(cmd, "record", bc.Record, &record)

			blockSize, err := parseBlockSize(blockStr)
			if err != nil {
				return err
			}
			if runs <= 0 {
				return fmt.Errorf("--runs must be positive, got %d", runs)
			}
			fn, err := backend.ParseTransform(transformName)
			if err != nil {
				return err
			}

			eng := a.engine(engine.Config{})
			started := time.Now()
			results, err := eng.Bench(cmd.Context(), engine.BenchConfig{
				Src:        args[0],
				Dir:        dir,
				BlockSize:  blockSize,
				Methods:    methods.methods,
				Runs:       runs,
				ClearCache: clearCache,
				Transform:  fn,
			})
			if err != nil {
				return failed("bench failed", err)
			}

			out := cmd.OutOrStdout()
			tw := ui.NewTableWriter(out, ui.IsTTY(os.Stdout.Fd()))
			if err := tw.WriteBench(results); err != nil {
				return failed("write results", err)
			}

			if record {
				if err := a.record(cmd, args[0], started, results); err != nil {
					return failed("record history", err)
				}
			}

			if allFailed(results) {
				return failed("bench failed", errors.New("every run failed"))
			}
			return nil
		},
	}

	cmd.Flags().VarP(methods, "backends", "b", "comma-separated backends to run (default: all)")
	cmd.Flags().StringVar(&blockStr, "block", "64K", "block size")
	cmd.Flags().IntVarP(&runs, "runs", "n", 1, "runs per backend")
	cmd.Flags().BoolVar(&clearCache, "clear-cache", false, "evict the source from the page cache before every run")
	cmd.Flags().BoolVar(&record, "record", false, "store results in the history database")
	cmd.Flags().StringVar(&dir, "dir", "", "directory for bench outputs (default: the source's directory)")
	cmd.Flags().StringVarP(&transformName, "transform", "t", "copy", "block transform: copy, invert or xor:<byte>")
	return cmd
}

func (a *app) record(cmd *cobra.Command, src string, at time.Time, results []engine.BenchResult) error {
	h, err := a.openHistory()
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Record(cmd.Context(), src, at, results); err != nil {
		return err
	}
	slog.Info("recorded bench results", "runs", len(results), "history", h.Path())
	return nil
}

func (a *app) openHistory() (*engine.History, error) {
	var path string
	if a.cfg.History.Path != nil {
		path = *a.cfg.History.Path
	}
	return engine.OpenHistory(path)
}

// methodsFlag is a pflag.Value collecting backend tags. It accepts repeated
// flags and comma-separated lists, rejecting unknown tags at parse time.
type methodsFlag struct {
	methods []backend.Method
}

var _ pflag.Value = (*methodsFlag)(nil)

func (f *methodsFlag) String() string {
	tags := make([]string, len(f.methods))
	for i, m := range f.methods {
		tags[i] = m.String()
	}
	return strings.Join(tags, ",")
}

func (*methodsFlag) Type() string { return "backends" }

func (f *methodsFlag) Set(val string) error {
	for _, tag := range strings.Split(val, ",") {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		m, err := backend.ParseMethod(tag)
		if err != nil {
			return err
		}
		if !slices.Contains(f.methods, m) {
			f.methods = append(f.methods, m)
		}
	}
	return nil
}

func allFailed(results []engine.BenchResult) bool {
	for _, r := range results {
		if r.Err == nil {
			return false
		}
	}
	return len(results) > 0
}
