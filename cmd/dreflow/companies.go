package main

import (
	"fmt"
	"time"

	"github.com/fluxofin/dreflow/internal/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func companiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "companies",
		Short: "Manage companies and their accounts",
	}

	cmd.AddCommand(addCompanyCmd())
	cmd.AddCommand(addAccountCmd())

	return cmd
}

func addCompanyCmd() *cobra.Command {
	var taxID string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			company := model.Company{
				CreatedAt: time.Now(),
				ID:        uuid.New().String(),
				Name:      args[0],
				TaxID:     taxID,
				IsActive:  true,
			}
			if err := store.CreateCompany(ctx, &company); err != nil {
				return fmt.Errorf("failed to create company: %w", err)
			}

			fmt.Printf("✓ Created company %q (ID: %s)\n", company.Name, company.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&taxID, "tax-id", "", "Company CNPJ")

	return cmd
}

func addAccountCmd() *cobra.Command {
	var (
		companyID string
		bankCode  string
	)

	cmd := &cobra.Command{
		Use:   "add-account <name>",
		Short: "Add a bank account to a company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.GetCompanyByID(ctx, companyID); err != nil {
				return fmt.Errorf("failed to get company: %w", err)
			}

			account := model.Account{
				CreatedAt: time.Now(),
				ID:        uuid.New().String(),
				CompanyID: companyID,
				Name:      args[0],
				BankCode:  bankCode,
				IsActive:  true,
			}
			if err := store.CreateAccount(ctx, &account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Printf("✓ Created account %q (ID: %s)\n", account.Name, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().StringVar(&bankCode, "bank", "", "Bank code")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}
