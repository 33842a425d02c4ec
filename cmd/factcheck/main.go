// Package main provides the entry point for the factcheck CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0-dev"
	globalDir string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := newRootCmd()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "factcheck",
		Short:         "Claim verification workflow: intake, AI screening, human review and publication",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalDir, "dir", "C", "", "Directory containing .factcheck (default: current directory)")

	rootCmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newSubmitCmd(),
		newImportCmd(),
		newProcessCmd(),
		newClaimsCmd(),
		newReviewCmd(),
		newUsersCmd(),
		newTrendingCmd(),
		newNotifyCmd(),
		newCategoriesCmd(),
	)
	return rootCmd
}

// baseDir resolves the directory holding .factcheck.
func baseDir() (string, error) {
	if globalDir != "" {
		return globalDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}
