package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/application/handlers"
)

type importFlags struct {
	format         string
	dryRun         bool
	submitter      string
	skipDuplicates bool
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import claims from JSON or CSV",
		Long:  "Submits every claim in a structured file. Rows are validated and queued exactly like single submissions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")
	cmd.Flags().StringVarP(&flags.submitter, "user", "u", "", "Submitter for rows without one")
	cmd.Flags().BoolVar(&flags.skipDuplicates, "skip-duplicates", false, "Skip rows that duplicate an open claim instead of merging them")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		fmt.Printf("Importing %s...\n", filePath)

		result, err := d.Import.Handle(ctx, filePath, handlers.ImportOptions{
			Format:         flags.format,
			DryRun:         flags.dryRun,
			SubmitterID:    flags.submitter,
			SkipDuplicates: flags.skipDuplicates,
		})
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e.Error())
		}

		if flags.dryRun {
			fmt.Printf("\nDry run: %d valid, %d skipped, %d errors\n", result.Imported, result.Skipped, len(result.Errors))
			return nil
		}
		fmt.Printf("\nImported %d claims (%d merged, %d skipped, %d errors)\n", result.Imported, result.Merged, result.Skipped, len(result.Errors))
		return nil
	})
}
