package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fluxofin/dreflow/internal/dre"
	"github.com/spf13/cobra"
)

func statementCmd() *cobra.Command {
	var (
		companyID string
		periodStr string
		compare   bool
	)

	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Generate a DRE statement for a period",
		Long: `Aggregate the categorized transactions of a month into a DRE income
statement. With --compare, the previous month is computed as well and the
delta per group is shown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			period, err := dre.ParsePeriod(periodStr)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			agg := dre.NewAggregator(store, nil)

			if !compare {
				stmt, err := agg.ComputeStatement(ctx, companyID, period)
				if err != nil {
					return fmt.Errorf("failed to compute statement: %w", err)
				}
				printStatement(stmt)
				return nil
			}

			cmp, err := agg.ComparePeriods(ctx, companyID, period, period.Previous())
			if err != nil {
				return fmt.Errorf("failed to compare periods: %w", err)
			}
			printComparison(cmp)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().StringVar(&periodStr, "period", "", "Period as YYYY-MM (required)")
	cmd.Flags().BoolVar(&compare, "compare", false, "Include the previous period and per-group deltas")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func printStatement(stmt *dre.Statement) {
	fmt.Printf("DRE %s (%d transactions)\n\n", stmt.Period, stmt.TransactionCount)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer w.Flush()

	for _, line := range stmt.Lines {
		label := line.Label
		if line.Derived {
			label = "= " + label
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t\n", line.Group, label, line.Amount)
	}

	if stmt.Unclassified != 0 {
		fmt.Fprintf(w, "\t(unclassified)\t%.2f\t\n", stmt.Unclassified)
	}
}

func printComparison(cmp *dre.Comparison) {
	fmt.Printf("DRE %s vs %s\n\n", cmp.Current.Period, cmp.Previous.Period)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer w.Flush()

	fmt.Fprintf(w, "Group\tCurrent\tPrevious\tDelta\t\n")
	for _, line := range cmp.Current.Lines {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%+.2f\t\n",
			line.Group,
			cmp.Current.Totals[line.Group],
			cmp.Previous.Totals[line.Group],
			cmp.Deltas[line.Group])
	}
}
