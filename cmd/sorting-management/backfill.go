package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill missing enrichment data for every report",
	Long: `backfill looks up every discrepancy number whose reports miss the
discrepancy date, production order or part code, and writes what the
reference database knows. Running it again only touches rows that change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.enrichment == nil {
			return errors.New("reference store is disabled (reference.enabled=false)")
		}
		if err := a.ensureSchema(ctx); err != nil {
			return err
		}

		result, err := a.enrichment.Backfill(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}
