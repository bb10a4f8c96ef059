package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"foodhub/catalog"
	"foodhub/resolver"
)

func newSeedCommand(cc *commandContext) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import the fixture dataset into the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dataset, err := cc.fixtures()
			if err != nil {
				return err
			}
			store, err := cc.connect(ctx)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer store.Close(ctx)

			svc := catalog.NewService(store, resolver.New(dataset), cc.log)
			report, err := svc.Seed(ctx, dataset, reset)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{{"Backend", false}, {"Restaurants", true}, {"Items", true}, {"Skipped", true}},
				table.Row{store.Backend, report.Restaurants, report.Items, report.Skipped},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all restaurants and items before seeding")
	return cmd
}
