package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fluxofin/dreflow/internal/dre"
	"github.com/fluxofin/dreflow/internal/model"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List and add the categories transactions are classified into.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	var companyID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			categories, err := store.GetCategories(ctx, companyID)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println("No categories found. Use 'dreflow categories add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "ID\tName\tType\tDRE group\tIgnored\n")
			for _, cat := range categories {
				group := cat.DREGroup
				if group == "" {
					group = "-"
				}
				ignored := ""
				if cat.IsIgnored {
					ignored = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cat.ID, cat.Name, cat.Type, group, ignored)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func addCategoryCmd() *cobra.Command {
	var (
		companyID    string
		categoryType string
		dreGroup     string
		ignored      bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Long:  `Create a category with a type and an optional DRE group mapping.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			if dreGroup != "" && !dre.Valid(dreGroup) {
				return fmt.Errorf("invalid DRE group %q", dreGroup)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			existing, err := store.GetCategoryByName(ctx, companyID, name)
			if err == nil && existing != nil {
				return fmt.Errorf("category %q already exists", name)
			}

			now := time.Now()
			category := model.Category{
				CreatedAt: now,
				UpdatedAt: now,
				ID:        uuid.New().String(),
				CompanyID: companyID,
				Name:      name,
				Type:      model.CategoryType(categoryType),
				DREGroup:  dreGroup,
				IsIgnored: ignored,
				IsActive:  true,
			}
			if err := store.CreateCategory(ctx, &category); err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Printf("✓ Created category %q (ID: %s)\n", category.Name, category.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company ID (required)")
	cmd.Flags().StringVar(&categoryType, "type", "", "Category type: revenue, variable_cost, fixed_cost, non_operational, tax, transfer (required)")
	cmd.Flags().StringVar(&dreGroup, "dre-group", "", "DRE group code the category maps to (e.g. RoB, CF)")
	cmd.Flags().BoolVar(&ignored, "ignored", false, "Exclude this category from statements")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}
