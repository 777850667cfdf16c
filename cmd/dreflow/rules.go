package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fluxofin/dreflow/internal/lifecycle"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/fluxofin/dreflow/internal/pattern"
	"github.com/fluxofin/dreflow/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long:  `List, test, promote, deactivate, and import categorization rules.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(testRuleCmd())
	cmd.AddCommand(promoteRuleCmd())
	cmd.AddCommand(deactivateRuleCmd())
	cmd.AddCommand(importRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	var companyID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		Long:  `Display every rule in the company, including candidates and inactive rules.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rules, err := store.GetRules(ctx, companyID, true)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println("No rules found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "ID\tPattern\tType\tStatus\tCategory\tConfidence\tUsage\tPrecision\n")
			for _, rule := range rules {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%d\t%.2f\n",
					rule.ID, rule.Pattern, rule.RuleType, rule.Status,
					rule.CategoryID, rule.ConfidenceScore, rule.UsageCount, rule.Precision())
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func testRuleCmd() *cobra.Command {
	var (
		companyID string
		days      int
	)

	cmd := &cobra.Command{
		Use:   "test <rule-id>",
		Short: "Dry-run a rule against recent transactions",
		Long: `Match a rule against the company's recent transactions without changing
anything, showing how many would be affected and a sample of matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rule, err := store.GetRuleByID(ctx, companyID, args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			since := time.Now().AddDate(0, 0, -days)
			txns, err := store.GetTransactions(ctx, service.TransactionFilter{
				CompanyID: companyID,
				StartDate: &since,
			})
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}

			result := pattern.TestRule(*rule, txns)

			fmt.Printf("Rule %s (%s %q) matched %d of %d transactions from the last %d days\n",
				rule.ID, rule.RuleType, rule.Pattern, result.MatchCount, result.TotalTested, days)

			for _, txn := range result.SampleMatches {
				fmt.Printf("  %s  %10.2f  %s\n", txn.Date.Format("2006-01-02"), txn.Amount, txn.Description)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().IntVar(&days, "days", 90, "How many days of transactions to test against")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func promoteRuleCmd() *cobra.Command {
	var companyID string

	cmd := &cobra.Command{
		Use:   "promote <rule-id>",
		Short: "Promote a rule to the next lifecycle status",
		Long:  `Advance a rule one step: candidate to active, active to refined, refined to consolidated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rule, err := store.GetRuleByID(ctx, companyID, args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}

			var target model.RuleStatus
			switch rule.Status {
			case model.RuleStatusCandidate:
				target = model.RuleStatusActive
			case model.RuleStatusActive:
				target = model.RuleStatusRefined
			case model.RuleStatusRefined:
				target = model.RuleStatusConsolidated
			default:
				return fmt.Errorf("rule %s is %s and cannot be promoted", rule.ID, rule.Status)
			}

			svc := lifecycle.NewService(store, lifecycle.DefaultConfig(), nil)
			if err := svc.Transition(ctx, companyID, rule.ID, target); err != nil {
				return fmt.Errorf("failed to promote rule: %w", err)
			}

			fmt.Printf("✓ Promoted rule %s to %s\n", rule.ID, target)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func deactivateRuleCmd() *cobra.Command {
	var companyID string

	cmd := &cobra.Command{
		Use:   "deactivate <rule-id>",
		Short: "Deactivate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := lifecycle.NewService(store, lifecycle.DefaultConfig(), nil)
			if err := svc.Transition(ctx, companyID, args[0], model.RuleStatusInactive); err != nil {
				return fmt.Errorf("failed to deactivate rule: %w", err)
			}

			fmt.Printf("✓ Deactivated rule %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

// importedRule is the JSON shape accepted by 'rules import'.
type importedRule struct {
	Pattern    string  `json:"pattern"`
	RuleType   string  `json:"rule_type"`
	CategoryID string  `json:"category_id"`
	Confidence float64 `json:"confidence"`
}

func importRulesCmd() *cobra.Command {
	var (
		companyID string
		filePath  string
		activate  bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import rules from a JSON file",
		Long: `Create rules from a JSON array of {pattern, rule_type, category_id,
confidence} objects. Imported rules start as candidates unless --activate is
given; invalid patterns are rejected up front.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read rules file: %w", err)
			}

			var imports []importedRule
			if err := json.Unmarshal(data, &imports); err != nil {
				return fmt.Errorf("failed to parse rules file: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			status := model.RuleStatusCandidate
			if activate {
				status = model.RuleStatusActive
			}

			created := 0
			for i, imp := range imports {
				ruleType := model.RuleType(imp.RuleType)
				if err := pattern.ValidatePattern(imp.Pattern, ruleType); err != nil {
					return fmt.Errorf("rule %d (%q): %w", i, imp.Pattern, err)
				}

				if _, err := store.GetCategoryByID(ctx, companyID, imp.CategoryID); err != nil {
					return fmt.Errorf("rule %d (%q): unknown category %s: %w", i, imp.Pattern, imp.CategoryID, err)
				}

				now := time.Now()
				rule := model.CategoryRule{
					CreatedAt:       now,
					UpdatedAt:       now,
					ID:              uuid.New().String(),
					CompanyID:       companyID,
					CategoryID:      imp.CategoryID,
					Pattern:         imp.Pattern,
					RuleType:        ruleType,
					Status:          status,
					SourceType:      model.RuleSourceImported,
					ConfidenceScore: imp.Confidence,
					IsActive:        activate,
				}
				if err := store.CreateRule(ctx, &rule); err != nil {
					return fmt.Errorf("rule %d (%q): %w", i, imp.Pattern, err)
				}
				created++
			}

			fmt.Printf("✓ Imported %d rules as %s\n", created, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().StringVar(&filePath, "file", "", "Path to the JSON rules file (required)")
	cmd.Flags().BoolVar(&activate, "activate", false, "Create rules as active instead of candidate")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
