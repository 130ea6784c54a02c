package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bamsammich/blockio/internal/backend"
	"github.com/bamsammich/blockio/internal/engine"
)

func (a *app) createCmd() *cobra.Command {
	var (
		generatorName string
		checksum      bool
		inPlace       bool
		lock          bool
		bwLimitStr    string
	)

	cmd := &cobra.Command{
		Use:   "create <backend> <path> <sizeMB> <blockKB>",
		Short: "Create a file of <sizeMB> MiB written in <blockKB> KiB blocks",
		Long: `Create <path> by writing generated blocks through the chosen backend. Sizes
are MiB and KiB when given as bare numbers and also accept suffixes (512K, 2G).
The total size must be a whole number of blocks.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag := args[0]
			if _, err := backend.ParseMethod(tag); err != nil {
				return err
			}
			size, err := parseTotalSize(args[2])
			if err != nil {
				return err
			}
			blockSize, err := parseBlockSize(args[3])
			if err != nil {
				return err
			}
			job := backend.CreateJob{Dst: args[1], Size: size, BlockSize: blockSize}
			if err := job.Validate(); err != nil {
				return err
			}
			gen, err := backend.ParseGenerator(generatorName)
			if err != nil {
				return err
			}

			defaults := a.cfg.Defaults
			applyBool(cmd, "checksum", defaults.Checksum, &checksum)
			applyBool(cmd, "in-place", defaults.InPlace, &inPlace)
			applyBool(cmd, "lock", defaults.Lock, &lock)

			bwLimit, err := a.parseBWLimit(cmd, bwLimitStr)
			if err != nil {
				return err
			}

			eng := a.engine(engine.Config{
				InPlace:  inPlace,
				Lock:     lock,
				BWLimit:  bwLimit,
				Checksum: checksum,
			})

			slog.Debug("starting create",
				"backend", tag,
				"dst", job.Dst,
				"size", size,
				"block_size", blockSize,
				"generator", generatorName,
			)

			res, err := eng.Create(tag, job, gen)
			if err != nil {
				a.summarize(cmd)
				return failed("create failed", err)
			}
			if !a.quiet {
				fmt.Fprintln(cmd.OutOrStdout(), engine.Summary(res))
				if checksum {
					fmt.Fprintf(cmd.OutOrStdout(), "xxhash %016x\n", res.Checksum)
				}
			}
			a.summarize(cmd)
			return nil
		},
	}

	cmd.Flags().StringVarP(&generatorName, "generator", "g", "zero", "block generator: zero, pattern, random or random:<seed>")
	cmd.Flags().BoolVar(&checksum, "checksum", false, "print an xxhash digest of the bytes written")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "write the file directly instead of staging and renaming")
	cmd.Flags().BoolVar(&lock, "lock", false, "take an exclusive lock on <path>.lock while writing")
	cmd.Flags().StringVar(&bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	return cmd
}
