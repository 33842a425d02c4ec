package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/infrastructure/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new factcheck workspace",
		Long:  "Creates a .factcheck directory with default configuration, the SQLite schema, the default categories and, when enabled, the Qdrant collection.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := baseDir()
	if err != nil {
		return err
	}

	if config.Exists(dir) {
		return fmt.Errorf("factcheck already initialized in %s", dir)
	}

	if err := config.WriteDefault(dir); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	fmt.Printf("Created %s\n", config.ConfigFilePath(dir))

	return withDeps(cmd.Context(), func(d *Deps) error {
		result, err := d.Init.Handle(cmd.Context())
		if err != nil {
			return fmt.Errorf("initializing: %w", err)
		}

		fmt.Printf("Database: %s\n", d.Config.DatabasePath(dir))
		fmt.Printf("Categories: %d\n", result.Categories)
		if result.CollectionCreated {
			fmt.Printf("Created Qdrant collection: %s\n", d.Config.Qdrant.Collection)
		}
		fmt.Println("Factcheck initialized successfully!")
		return nil
	})
}
