package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/engine"
)

func (a *app) transformCmd() *cobra.Command {
	var (
		transformName string
		verify        bool
		checksum      bool
		inPlace       bool
		lock          bool
		bwLimitStr    string
		ringEntries   uint
	)

	cmd := &cobra.Command{
		Use:   "transform <backend> <src> <dst> <blockKB> [seq]",
		Short: "Stream a source file block by block through a transform into a destination",
		Long: `Read <src> in blocks of <blockKB> KiB (or a suffixed size such as 1M), pass
each block through the transform and write the result to <dst>.

The trailing "seq" argument is accepted for compatibility and selects the
sequential copy transform.`,
		Args: cobra.RangeArgs(4, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := args[0]
			if _, err := backend.ParseMethod(tag); err != nil {
				return err
			}
			blockSize, err := parseBlockSize(args[3])
			if err != nil {
				return err
			}
			if len(args) == 5 {
				if !strings.EqualFold(args[4], "seq") {
					return fmt.Errorf("unknown mode %q (only seq is supported)", args[4])
				}
				if cmd.Flags().Changed("transform") && !isCopy(transformName) {
					return fmt.Errorf("mode seq conflicts with --transform %s", transformName)
				}
			}
			fn, err := backend.ParseTransform(transformName)
			if err != nil {
				return err
			}

			defaults := a.cfg.Defaults
			applyBool(cmd, "verify", defaults.Verify, &verify)
			applyBool(cmd, "checksum", defaults.Checksum, &checksum)
			applyBool(cmd, "in-place", defaults.InPlace, &inPlace)
			applyBool(cmd, "lock", defaults.Lock, &lock)

			bwLimit, err := a.parseBWLimit(cmd, bwLimitStr)
			if err != nil {
				return err
			}
			if verify && !isCopy(transformName) {
				if cmd.Flags().Changed("verify") {
					return fmt.Errorf("--verify requires the copy transform, got %q", transformName)
				}
				verify = false
			}

			job := backend.Job{Src: args[1], Dst: args[2], BlockSize: blockSize}
			eng := a.engine(engine.Config{
				InPlace:     inPlace,
				Lock:        lock,
				BWLimit:     bwLimit,
				Checksum:    checksum,
				RingEntries: ringEntries,
			})

			slog.Debug("starting transform",
				"backend", tag,
				"src", job.Src,
				"dst", job.Dst,
				"block_size", blockSize,
				"bwlimit", bwLimit,
				"in_place", inPlace,
			)

			res, err := eng.Transform(tag, job, fn)
			if err != nil {
				a.summarize(cmd)
				return failed("transform failed", err)
			}
			if !a.quiet {
				fmt.Fprintln(cmd.OutOrStdout(), engine.Summary(res))
				if checksum {
					fmt.Fprintf(cmd.OutOrStdout(), "xxhash %016x\n", res.Checksum)
				}
			}

			if verify {
				if res.EarlyStop {
					slog.Warn("skipping verify: transform stopped early", "dst", job.Dst)
				} else if _, err := eng.Verify(cmd.Context(), job.Src, job.Dst); err != nil {
					a.summarize(cmd)
					return failed("verify failed", err)
				}
			}

			a.summarize(cmd)
			return nil
		},
	}

	cmd.Flags().StringVarP(&transformName, "transform", "t", "copy", "block transform: copy, invert or xor:<byte>")
	cmd.Flags().BoolVar(&verify, "verify", false, "compare source and destination with BLAKE3 afterwards (copy only)")
	cmd.Flags().BoolVar(&checksum, "checksum", false, "print an xxhash digest of the bytes written")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "write the destination directly instead of staging and renaming")
	cmd.Flags().BoolVar(&lock, "lock", false, "take an exclusive lock on <dst>.lock while writing")
	cmd.Flags().StringVar(&bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	cmd.Flags().UintVar(&ringEntries, "ring-entries", 0, "io_uring queue depth for the uring backend (default 8)")
	return cmd
}

func isCopy(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "copy", "seq":
		return true
	}
	return false
}
