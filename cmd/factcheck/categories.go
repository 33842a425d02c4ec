package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage claim categories",
		Long:  "List, add, or remove the categories claims are filed under.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategoriesList(cmd)
		},
	}

	cmd.AddCommand(newCategoriesListCmd())
	cmd.AddCommand(newCategoriesAddCmd())
	cmd.AddCommand(newCategoriesRemoveCmd())

	return cmd
}

func newCategoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategoriesList(cmd)
		},
	}
}

func runCategoriesList(cmd *cobra.Command) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		categories, err := d.Categories.List(ctx)
		if err != nil {
			return fmt.Errorf("listing categories: %w", err)
		}

		if len(categories) == 0 {
			fmt.Println("No categories found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tWEIGHT\tRISK THRESHOLD\tDESCRIPTION")
		for i := range categories {
			c := categories[i]
			fmt.Fprintf(w, "%s\t%.1f\t%.0f\t%s\n", c.Name, c.Weight, c.RiskThreshold, truncate(c.Description, 50))
		}
		return w.Flush()
	})
}

func newCategoriesAddCmd() *cobra.Command {
	var (
		description   string
		weight        float64
		riskThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				if err := d.Categories.Add(ctx, args[0], description, weight, riskThreshold); err != nil {
					return fmt.Errorf("adding category: %w", err)
				}
				fmt.Printf("Added category: %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Category description")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 1.0, "Trending weight")
	cmd.Flags().Float64Var(&riskThreshold, "risk-threshold", DefaultRiskThreshold, "Topic engagement above which the category is high risk, in (0, 100]")

	return cmd
}

func newCategoriesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a custom category",
		Long:  "Removes a custom category. Default categories cannot be removed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				if err := d.Categories.Remove(ctx, args[0]); err != nil {
					return fmt.Errorf("removing category: %w", err)
				}
				fmt.Printf("Removed category: %s\n", args[0])
				return nil
			})
		},
	}
}
