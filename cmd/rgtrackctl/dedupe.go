package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDedupeCmd(root *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "dedupe-scores",
		Short: "Remove duplicate score index entries",
		Long: `dedupe-scores finds score IDs indexed more than once and keeps the entry
that matches the stored score.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, root)
			if err != nil {
				return err
			}
			defer store.Close()

			total, err := store.CountScores(ctx)
			if err != nil {
				return err
			}
			groups, err := store.FindDuplicateScoreIDs(ctx)
			if err != nil {
				return err
			}
			removed := 0
			if !dryRun && len(groups) > 0 {
				if removed, err = store.RemoveDuplicateScores(ctx, groups); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), panel("Duplicate scores", []row{
				{label: "scores", value: total},
				{label: "duplicated ids", value: len(groups), bad: len(groups) > 0 && dryRun},
				{label: "entries removed", value: removed},
				{label: "dry run", value: dryRun},
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report duplicates without removing them")
	return cmd
}
