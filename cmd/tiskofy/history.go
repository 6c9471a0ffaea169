package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beonanotherplanet/tiskofy/internal/history"
)

func newHistoryCmd(opts *cliOptions) *cobra.Command {
	limit := 20

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished downloads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := history.Open(opts.cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, entries)
			}
			for _, entry := range entries {
				fmt.Fprintln(out, entryLine(entry))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", limit, "max entries to show (0 for all)")
	return cmd
}
