package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/application/handlers"
	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

func newClaimsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Inspect and manage claims",
	}

	cmd.AddCommand(
		newClaimsListCmd(),
		newClaimsShowCmd(),
		newClaimsRejectCmd(),
		newClaimsReReviewCmd(),
		newClaimsReadCmd(),
	)
	return cmd
}

type claimsListFlags struct {
	statuses  string
	category  string
	submitter string
	checker   string
	trending  bool
	limit     int
	offset    int
}

func newClaimsListCmd() *cobra.Command {
	var flags claimsListFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List claims, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClaimsList(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.statuses, "status", "s", "", "Comma separated statuses to include")
	cmd.Flags().StringVarP(&flags.category, "category", "c", "", "Filter by category")
	cmd.Flags().StringVar(&flags.submitter, "submitter", "", "Filter by submitting user")
	cmd.Flags().StringVar(&flags.checker, "checker", "", "Filter by assigned fact-checker")
	cmd.Flags().BoolVar(&flags.trending, "trending", false, "Only trending claims")
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", DefaultListLimit, "Maximum number of claims")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "Skip this many claims")

	return cmd
}

func runClaimsList(cmd *cobra.Command, flags claimsListFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		claims, err := d.Claims.List(ctx, handlers.ListOptions{
			Statuses:     splitList(flags.statuses),
			Category:     flags.category,
			SubmitterID:  flags.submitter,
			CheckerID:    flags.checker,
			TrendingOnly: flags.trending,
			Limit:        flags.limit,
			Offset:       flags.offset,
		})
		if err != nil {
			return fmt.Errorf("listing claims: %w", err)
		}

		if len(claims) == 0 {
			fmt.Println("No claims found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tCATEGORY\tSUBMISSIONS\tTRENDING\tTITLE")
		for _, c := range claims {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				c.ID, c.Status, c.Priority, c.Category, c.SubmissionCount, yesNo(c.IsTrending), truncate(c.Title, 60))
		}
		return w.Flush()
	})
}

func newClaimsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <claim-id>",
		Short: "Show a claim with its verdicts and audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				detail, err := d.Claims.Show(ctx, args[0])
				if err != nil {
					return fmt.Errorf("loading claim: %w", err)
				}
				displayClaimDetail(detail)
				return nil
			})
		},
	}
}

func displayClaimDetail(detail *services.ClaimDetail) {
	c := detail.Claim
	fmt.Printf("Claim %s\n", c.ID)
	fmt.Printf("  Title:       %s\n", c.Title)
	if c.Description != "" {
		fmt.Printf("  Description: %s\n", c.Description)
	}
	fmt.Printf("  Status:      %s\n", c.Status)
	fmt.Printf("  Category:    %s\n", c.Category)
	fmt.Printf("  Priority:    %s\n", c.Priority)
	fmt.Printf("  Submitter:   %s\n", c.SubmitterID)
	fmt.Printf("  Submissions: %d\n", c.SubmissionCount)
	fmt.Printf("  Checker:     %s\n", orDash(c.AssignedFactCheckerID))
	if c.IsTrending {
		fmt.Printf("  Trending:    %.2f\n", c.TrendingScore)
	}
	fmt.Printf("  Created:     %s\n", formatTime(c.CreatedAt))
	fmt.Printf("  Published:   %s\n", formatTimePtr(c.PublishedAt))

	if len(detail.AIVerdicts) > 0 {
		fmt.Println("\nAI verdicts:")
		for _, v := range detail.AIVerdicts {
			fmt.Printf("  %s  %s (%.2f, %s, %s)\n", formatTime(v.CreatedAt), v.Verdict, v.ConfidenceScore, v.ParseMode, v.ModelVersion)
			if v.Explanation != "" {
				fmt.Printf("    %s\n", truncate(v.Explanation, 100))
			}
		}
	}

	if len(detail.Verdicts) > 0 {
		fmt.Println("\nVerdicts:")
		for _, v := range detail.Verdicts {
			final := ""
			if v.IsFinal {
				final = " [final]"
			}
			fmt.Printf("  %s  %s by %s%s\n", formatTime(v.CreatedAt), v.Verdict, v.FactCheckerID, final)
			if len(v.Sources) > 0 {
				fmt.Printf("    sources: %s\n", strings.Join(v.Sources, ", "))
			}
		}
	}

	if len(detail.Audit) > 0 {
		fmt.Println("\nAudit:")
		for _, e := range detail.Audit {
			fmt.Printf("  %s  %s\n", formatTime(e.CreatedAt), e.Action)
		}
	}
}

func newClaimsRejectCmd() *cobra.Command {
	var actor, reason string

	cmd := &cobra.Command{
		Use:   "reject <claim-id>",
		Short: "Reject a claim as out of scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				claim, err := d.Claims.Reject(ctx, args[0], actor, reason)
				if err != nil {
					return fmt.Errorf("rejecting claim: %w", err)
				}
				printClaimStatus(claim)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&actor, "user", "u", "", "Acting fact-checker or admin ID (required)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the claim is rejected")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newClaimsReReviewCmd() *cobra.Command {
	var admin, reason string

	cmd := &cobra.Command{
		Use:   "rereview <claim-id>",
		Short: "Send a published claim back for human review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				claim, err := d.Claims.ReReview(ctx, args[0], admin, reason)
				if err != nil {
					return fmt.Errorf("reopening claim: %w", err)
				}
				printClaimStatus(claim)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&admin, "admin", "a", "", "Admin ID (required)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the verdict is reopened")
	_ = cmd.MarkFlagRequired("admin")

	return cmd
}

func newClaimsReadCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "read <claim-id>",
		Short: "Record that the submitter read the verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				claim, err := d.Claims.MarkRead(ctx, args[0], user)
				if err != nil {
					return fmt.Errorf("marking verdict read: %w", err)
				}
				fmt.Printf("Verdict for %s read at %s\n", claim.ID, formatTimePtr(claim.VerdictReadAt))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Submitting user ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printClaimStatus(c *entities.Claim) {
	fmt.Printf("Claim %s is now %s\n", c.ID, c.Status)
}
