package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.dw1.io/safemath"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/config"
	"github.com/bamsammich/blockio/internal/engine"
	"github.com/bamsammich/blockio/internal/stats"
	"github.com/bamsammich/blockio/internal/ui"
	"github.com/bamsammich/blockio/internal/units"
)

var version = "dev"

func main() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Jobs run to completion without observing a context, so an interrupt
	// only has to remove staged outputs before the process goes away.
	go func() {
		sig := <-sigs
		slog.Warn("interrupted, removing staged outputs", "signal", sig.String(), "pending", engine.PendingTmp())
		engine.CleanupTmpFiles()
		os.Exit(130)
	}()

	os.Exit(run(context.Background(), os.Args[1:]))
}

// app carries state shared by every subcommand: global flags, the loaded
// config file and the collector behind the completion summary.
type app struct {
	verbose bool
	quiet   bool
	logFile string

	cfg       config.Config
	collector *stats.Collector
	closeLog  func()
}

func newApp() *app {
	return &app{collector: stats.NewCollector(), closeLog: func() {}}
}

func run(ctx context.Context, args []string) int {
	a := newApp()
	defer func() { a.closeLog() }()

	root := a.rootCmd()
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	// Anything else is a usage problem: bad argument count, flag or value.
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if cmd != nil {
		fmt.Fprint(os.Stderr, cmd.UsageString())
	}
	return 2
}

func (a *app) rootCmd() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           "blockio",
		Short:         "Block-wise file I/O benchmark across buffered, unbuffered, mapped and io_uring backends",
		Long:          longHelp(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "blockio %s\n", version)
				return nil
			}
			return cmd.Help()
		},
	}

	root.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress all output except errors")
	root.PersistentFlags().StringVar(&a.logFile, "log", "", "write structured JSON log to FILE")

	root.AddCommand(
		a.createCmd(),
		a.transformCmd(),
		a.clearCmd(),
		a.benchCmd(),
		a.verifyCmd(),
		a.historyCmd(),
		docsCmd(),
	)
	return root
}

func longHelp() string {
	var b strings.Builder
	b.WriteString("blockio creates and transforms files block by block through one of several\n")
	b.WriteString("I/O strategies so their throughput can be compared.\n\nBackends:\n")
	for _, m := range backend.Methods {
		fmt.Fprintf(&b, "  %-7s %s\n", m, m.Describe())
	}
	return strings.TrimRight(b.String(), "\n")
}

// setup configures logging and loads the optional config file. It runs
// before every subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	if a.verbose && a.quiet {
		return errors.New("--verbose and --quiet are mutually exclusive")
	}

	logLevel := slog.LevelWarn
	if a.verbose {
		logLevel = slog.LevelDebug
	} else if !a.quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if a.logFile != "" {
		lf, err := os.Create(a.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.closeLog = func() { _ = lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "path", config.Path(), "error", err)
	}
	a.cfg = cfg
	return nil
}

// engine builds an engine that logs every event and feeds the shared
// collector.
func (a *app) engine(cfg engine.Config) *engine.Engine {
	cfg.Reporter = ui.NewLogReporter(slog.Default())
	cfg.Stats = a.collector
	return engine.New(cfg)
}

// summarize prints the completion line unless --quiet was given.
func (a *app) summarize(cmd *cobra.Command) {
	if a.quiet {
		return
	}
	styled := ui.IsTTY(os.Stderr.Fd())
	fmt.Fprintln(cmd.ErrOrStderr(), ui.CompletionSummary(a.collector.Snapshot(), styled))
}

// failed logs a job-level failure and maps it to exit code 1.
func failed(msg string, err error) error {
	attrs := []any{"error", err}
	if kind := backend.KindOf(err); kind != 0 {
		attrs = append(attrs, "kind", kind.String())
	}
	slog.Error(msg, attrs...)
	return &exitError{code: 1}
}

// parseBlockSize parses a block size argument. Bare numbers are KiB.
func parseBlockSize(s string) (int, error) {
	n, err := units.ParseSizeDefault(s, units.KiB)
	if err != nil {
		return 0, fmt.Errorf("invalid block size: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %q", s)
	}
	bs, err := safemath.ConvertAny[int](n)
	if err != nil {
		return 0, fmt.Errorf("block size %q: %w", s, err)
	}
	return bs, nil
}

// parseTotalSize parses a file size argument. Bare numbers are MiB.
func parseTotalSize(s string) (int64, error) {
	n, err := units.ParseSizeDefault(s, units.MiB)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", s)
	}
	return n, nil
}

// parseBWLimit parses --bwlimit, falling back to the config default when the
// flag was not given.
func (a *app) parseBWLimit(cmd *cobra.Command, flag string) (int64, error) {
	if !cmd.Flags().Changed("bwlimit") && a.cfg.Defaults.BWLimit != nil {
		flag = *a.cfg.Defaults.BWLimit
	}
	if flag == "" {
		return 0, nil
	}
	n, err := units.ParseSize(flag)
	if err != nil {
		return 0, fmt.Errorf("invalid --bwlimit: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid --bwlimit: %q is negative", flag)
	}
	return n, nil
}

// applyBool sets *dst from the config value when the flag was not given on
// the command line.
func applyBool(cmd *cobra.Command, name string, value *bool, dst *bool) {
	if !cmd.Flags().Changed(name) && value != nil {
		*dst = *value
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
