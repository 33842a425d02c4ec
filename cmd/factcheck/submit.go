package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

type submitFlags struct {
	submitter   string
	description string
	category    string
	mediaURL    string
	priority    string
}

func newSubmitCmd() *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "submit <title>",
		Short: "Submit a claim for verification",
		Long:  "Records a claim, merges it into open duplicates and queues it for AI screening.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, strings.Join(args, " "), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.submitter, "user", "u", "", "Submitting user ID (required)")
	cmd.Flags().StringVarP(&flags.description, "description", "d", "", "Claim details")
	cmd.Flags().StringVarP(&flags.category, "category", "c", "", "Claim category")
	cmd.Flags().StringVar(&flags.mediaURL, "media", "", "Supporting media URL")
	cmd.Flags().StringVarP(&flags.priority, "priority", "p", "", "Priority (low, medium, high, critical)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSubmit(cmd *cobra.Command, title string, flags submitFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		result, err := d.Claims.Submit(ctx, services.SubmitInput{
			SubmitterID: flags.submitter,
			Title:       title,
			Description: flags.description,
			Category:    flags.category,
			MediaURL:    flags.mediaURL,
			Priority:    flags.priority,
		})
		if err != nil {
			return fmt.Errorf("submitting claim: %w", err)
		}

		c := result.Claim
		fmt.Printf("Claim %s submitted (%s, %s, %s)\n", c.ID, c.Category, c.Priority, c.Status)
		if len(result.MergedWith) > 0 {
			fmt.Printf("Merged with open claims: %s\n", strings.Join(result.MergedWith, ", "))
		}
		return nil
	})
}
