package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.json>",
		Short: "Load songs and charts from a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, root)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			songs, charts, err := store.LoadCatalog(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), panel("Catalog loaded", []row{
				{label: "file", value: args[0]},
				{label: "songs", value: songs},
				{label: "charts", value: charts},
			}))
			return nil
		},
	}
}
