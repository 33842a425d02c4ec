package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
)

func newProcessCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "process <claim-id>",
		Short: "Run AI verification for one claim now",
		Long:  "Screens a pending claim synchronously, bypassing the queue. --force re-runs a claim that already left pending.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-run verification regardless of status")

	return cmd
}

func runProcess(cmd *cobra.Command, claimID string, force bool) error {
	ctx := cmd.Context()

	return withInternalDeps(ctx, func(d *internalDeps) error {
		if d.processor == nil {
			return errNoLLM
		}

		detail, err := d.Claims.Show(ctx, claimID)
		if err != nil {
			return fmt.Errorf("loading claim: %w", err)
		}

		result, err := d.processor.Process(ctx, entities.AIVerifyPayload{
			ClaimID:     claimID,
			ClaimText:   detail.Claim.Text(),
			SubmitterID: detail.Claim.SubmitterID,
			Force:       force,
		})
		if err != nil {
			return fmt.Errorf("processing claim: %w", err)
		}

		fmt.Printf("Claim %s: %s\n", result.ClaimID, result.Outcome)
		if result.Verdict != nil {
			fmt.Printf("  AI verdict: %s (confidence %.2f, %s)\n", result.Verdict.Verdict, result.Verdict.ConfidenceScore, result.Verdict.ParseMode)
		}
		if result.Reason != "" {
			fmt.Printf("  %s\n", result.Reason)
		}
		return nil
	})
}
