package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/perysek/sorting-management/internal/domain"
	"github.com/perysek/sorting-management/internal/service"
)

var lookupHistory bool

var lookupCmd = &cobra.Command{
	Use:   "lookup <discrepancy-number>",
	Short: "Show what the reference database knows about one discrepancy",
	Args:  cobra.ExactArgs(1),
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

		out := struct {
			Discrepancy *service.DiscrepancyLookup `json:"discrepancy"`
			History     []domain.HistoryEntry      `json:"history,omitempty"`
		}{}

		out.Discrepancy, err = a.lookup.Discrepancy(ctx, args[0])
		if err != nil {
			return err
		}
		if lookupHistory {
			out.History, err = a.lookup.History(ctx, args[0])
			if err != nil {
				return err
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupHistory, "history", false, "include the note history")
}
