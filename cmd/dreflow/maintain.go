package main

import (
	"fmt"
	"log/slog"

	"github.com/fluxofin/dreflow/internal/lifecycle"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func maintainCmd() *cobra.Command {
	var (
		companyID string
		schedule  string
	)

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run rule maintenance",
		Long: `Deactivate unhealthy or imprecise rules and expire rules that have not
matched anything in a long time. With --schedule, keeps running on the given
cron expression until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := lifecycle.NewService(store, lifecycle.DefaultConfig(), slog.Default())

			runOnce := func() {
				report, err := svc.Maintain(ctx, companyID)
				if err != nil {
					slog.Error("rule maintenance failed", "company_id", companyID, "error", err)
					return
				}
				fmt.Printf("✓ Checked %d rules: %d deactivated, %d expired\n",
					report.RulesChecked, report.Deactivated, report.Expired)
			}

			if schedule == "" {
				report, err := svc.Maintain(ctx, companyID)
				if err != nil {
					return fmt.Errorf("rule maintenance failed: %w", err)
				}
				fmt.Printf("✓ Checked %d rules: %d deactivated, %d expired\n",
					report.RulesChecked, report.Deactivated, report.Expired)
				return nil
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(schedule, runOnce); err != nil {
				return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
			}

			slog.Info("starting scheduled maintenance", "company_id", companyID, "schedule", schedule)
			scheduler.Start()
			<-ctx.Done()

			stopCtx := scheduler.Stop()
			<-stopCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression to run maintenance on (e.g. \"0 3 * * *\")")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}
