package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bamsammich/blockio/internal/engine"
)

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <src> <dst>",
		Short: "Compare two files by BLAKE3 digest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.engine(engine.Config{}).Verify(cmd.Context(), args[0], args[1])
			if res.SrcHash != "" && res.DstHash != "" && !a.quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n%s  %s\n", res.SrcHash, res.Src, res.DstHash, res.Dst)
			}
			if err != nil {
				return failed("verify failed", err)
			}
			return nil
		},
	}
}
