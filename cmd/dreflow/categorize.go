package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func categorizeCmd() *cobra.Command {
	var (
		companyID string
		uploadID  string
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize pending transactions",
		Long: `Run the categorization waterfall (cache, rules, history, AI) over the
pending transactions of an upload and persist the results.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			eng, err := buildEngine(store)
			if err != nil {
				return err
			}

			stats, err := eng.CategorizeUpload(ctx, companyID, uploadID, engineOptions())
			if err != nil {
				return fmt.Errorf("categorization failed: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "Transactions\t%d\n", stats.TotalTransactions)
			fmt.Fprintf(w, "From cache\t%d\n", stats.FromCache)
			fmt.Fprintf(w, "From rules\t%d\n", stats.FromRules)
			fmt.Fprintf(w, "From history\t%d\n", stats.FromHistory)
			fmt.Fprintf(w, "From AI\t%d\n", stats.FromAI)
			fmt.Fprintf(w, "Needs review\t%d\n", stats.NeedsReview)
			fmt.Fprintf(w, "Rules generated\t%d\n", stats.RulesGenerated)
			fmt.Fprintf(w, "Duration\t%s\n", stats.Duration.Round(time.Millisecond))

			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().StringVar(&uploadID, "upload", "", "Upload ID (required)")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("upload")

	return cmd
}
