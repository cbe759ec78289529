package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gluk-w/claworc/launchpad-ai/internal/billing"
	"github.com/gluk-w/claworc/launchpad-ai/internal/database"
)

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List plans and their generation limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			var plans []database.Plan
			if err := database.DB.WithContext(cmd.Context()).Order("name").Find(&plans).Error; err != nil {
				return fmt.Errorf("load plans: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLAN\tCOPY\tCOMPONENT")
			for _, p := range plans {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, limitString(p.CopyLimit), limitString(p.ComponentLimit))
			}
			return tw.Flush()
		},
	}
}

func limitString(n int) string {
	if n == billing.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage [account]",
		Short: "Show quota and spend for an account, or totals for all accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closeDB, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			store := billing.NewGormStore(database.DB)
			var out any
			if len(args) == 0 {
				out, err = store.Totals(cmd.Context())
			} else {
				out, err = billing.NewGovernor(store).Account(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
