package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perysek/sorting-management/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and enrichment columns in the local store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		db, dialect, err := database.OpenLocal(ctx, &cfg.LocalDB)
		if err != nil {
			return err
		}
		defer db.Close()

		added, err := database.EnsureSchema(ctx, db, dialect)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(added) == 0 {
			fmt.Fprintln(out, "schema up to date")
			return nil
		}
		for _, col := range added {
			fmt.Fprintf(out, "added column reports.%s\n", col)
		}
		return nil
	},
}
