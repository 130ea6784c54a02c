package main

import (
	"github.com/spf13/cobra"

	"github.com/bamsammich/blockio/internal/engine"
)

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <path>",
		Short: "Evict a file from the OS page cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.engine(engine.Config{}).ClearCache(args[0]); err != nil {
				return failed("clear cache failed", err)
			}
			return nil
		},
	}
}
