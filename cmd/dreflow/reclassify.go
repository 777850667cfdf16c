package main

import (
	"fmt"
	"sort"

	"github.com/fluxofin/dreflow/internal/reclassify"
	"github.com/spf13/cobra"
)

func reclassifyCmd() *cobra.Command {
	var (
		companyID     string
		ruleID        string
		categoryID    string
		execute       bool
		includeManual bool
	)

	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Reclassify transactions matched by a rule",
		Long: `Preview which historical transactions a rule would move to a new
category. Nothing is changed unless --execute is given together with
--category. Manually categorized and verified transactions are left alone
unless --include-manual is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := reclassify.NewService(store, nil)
			onlyAutomatic := !includeManual

			if !execute {
				preview, err := svc.PreviewRule(ctx, companyID, ruleID, onlyAutomatic)
				if err != nil {
					return fmt.Errorf("preview failed: %w", err)
				}
				printPreview(preview)
				return nil
			}

			if categoryID == "" {
				return fmt.Errorf("--execute requires --category")
			}

			job, err := svc.Execute(ctx, companyID, ruleID, categoryID, onlyAutomatic)
			if err != nil {
				return fmt.Errorf("reclassification failed: %w", err)
			}

			fmt.Printf("✓ Job %s moved %d of %d transactions to category %s\n",
				job.ID, job.AffectedCount, job.ProcessedCount, job.NewCategoryID)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().StringVar(&ruleID, "rule", "", "Rule ID (required)")
	cmd.Flags().StringVar(&categoryID, "category", "", "Target category ID (required with --execute)")
	cmd.Flags().BoolVar(&execute, "execute", false, "Apply the reclassification instead of previewing")
	cmd.Flags().BoolVar(&includeManual, "include-manual", false, "Also move manually categorized and verified transactions")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("rule")

	return cmd
}

func printPreview(preview *reclassify.Preview) {
	fmt.Printf("Would affect %d transactions (%d automatic, %d manual)\n",
		preview.TotalAffected, preview.AutomaticOnly, preview.ManualOnly)

	months := make([]string, 0, len(preview.ByMonth))
	for month := range preview.ByMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		fmt.Printf("  %s: %d\n", month, preview.ByMonth[month])
	}

	if len(preview.Sample) > 0 {
		fmt.Println("Sample:")
		for _, txn := range preview.Sample {
			fmt.Printf("  %s  %10.2f  %s\n", txn.Date.Format("2006-01-02"), txn.Amount, txn.Description)
		}
	}
}
