package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/application/handlers"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Assign claims, track review sessions and record decisions",
	}

	cmd.AddCommand(
		newReviewAssignCmd(),
		newReviewUnassignCmd(),
		newReviewStartCmd(),
		newReviewEndCmd(),
		newReviewDecideCmd(),
		newReviewStatsCmd(),
		newReviewExpireCmd(),
	)
	return cmd
}

func newReviewAssignCmd() *cobra.Command {
	var checker string

	cmd := &cobra.Command{
		Use:   "assign <claim-id>",
		Short: "Assign a claim to a fact-checker",
		Long:  "Assigns a claim awaiting review. Without --checker the active fact-checker with the fewest open assignments is picked.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				claim, err := d.Review.Assign(ctx, args[0], checker)
				if err != nil {
					return fmt.Errorf("assigning claim: %w", err)
				}
				fmt.Printf("Claim %s assigned to %s\n", claim.ID, claim.AssignedFactCheckerID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&checker, "checker", "k", "", "Fact-checker ID (default: least loaded)")

	return cmd
}

func newReviewUnassignCmd() *cobra.Command {
	var checker string

	cmd := &cobra.Command{
		Use:   "unassign <claim-id>",
		Short: "Return an assigned claim to the review queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				if err := d.Review.Unassign(ctx, args[0], checker); err != nil {
					return fmt.Errorf("unassigning claim: %w", err)
				}
				fmt.Printf("Claim %s unassigned\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&checker, "checker", "k", "", "Fact-checker ID (required)")
	_ = cmd.MarkFlagRequired("checker")

	return cmd
}

func newReviewStartCmd() *cobra.Command {
	var checker string

	cmd := &cobra.Command{
		Use:   "start <claim-id>",
		Short: "Start a review session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				session, err := d.Review.StartSession(ctx, args[0], checker)
				if err != nil {
					return fmt.Errorf("starting session: %w", err)
				}
				fmt.Printf("Session %s started at %s\n", session.ID, formatTime(session.StartedAt))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&checker, "checker", "k", "", "Fact-checker ID (required)")
	_ = cmd.MarkFlagRequired("checker")

	return cmd
}

func newReviewEndCmd() *cobra.Command {
	var checker string

	cmd := &cobra.Command{
		Use:   "end <session-id>",
		Short: "End a review session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				session, err := d.Review.EndSession(ctx, args[0], checker)
				if err != nil {
					return fmt.Errorf("ending session: %w", err)
				}
				fmt.Printf("Session %s ended after %s (%s)\n", session.ID, formatSeconds(session.DurationSeconds), orDash(session.EndReason))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&checker, "checker", "k", "", "Fact-checker ID (required)")
	_ = cmd.MarkFlagRequired("checker")

	return cmd
}

type decideFlags struct {
	checker     string
	action      string
	verdict     string
	explanation string
	sources     []string
	reason      string
}

func newReviewDecideCmd() *cobra.Command {
	var flags decideFlags

	cmd := &cobra.Command{
		Use:   "decide <claim-id>",
		Short: "Record a review decision",
		Long: `Applies a review decision to an assigned claim. Actions:
  approve_ai      publish the AI verdict as final
  author_verdict  publish your own verdict (--verdict, --explanation)
  reject          reject the claim (--reason)
  escalate        hand the claim back for another reviewer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviewDecide(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.checker, "checker", "k", "", "Fact-checker ID (required)")
	cmd.Flags().StringVarP(&flags.action, "action", "a", "", "Decision (approve_ai, author_verdict, reject, escalate)")
	cmd.Flags().StringVar(&flags.verdict, "verdict", "", "Verdict label for author_verdict")
	cmd.Flags().StringVarP(&flags.explanation, "explanation", "e", "", "Verdict explanation")
	cmd.Flags().StringSliceVarP(&flags.sources, "source", "s", nil, "Supporting source (repeatable)")
	cmd.Flags().StringVarP(&flags.reason, "reason", "r", "", "Reason for reject or escalate")
	_ = cmd.MarkFlagRequired("checker")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func runReviewDecide(cmd *cobra.Command, claimID string, flags decideFlags) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		outcome, err := d.Review.Decide(ctx, handlers.DecisionRequest{
			ClaimID:     claimID,
			CheckerID:   flags.checker,
			Action:      flags.action,
			Verdict:     flags.verdict,
			Explanation: flags.explanation,
			Sources:     flags.sources,
			Reason:      flags.reason,
		})
		if err != nil {
			return fmt.Errorf("recording decision: %w", err)
		}

		fmt.Printf("Claim %s is now %s\n", outcome.Claim.ID, outcome.Claim.Status)
		if outcome.Verdict != nil {
			fmt.Printf("  Verdict %s: %s\n", outcome.Verdict.ID, outcome.Verdict.Verdict)
		}
		return nil
	})
}

func newReviewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <checker-id>",
		Short: "Show a fact-checker's review statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				stats, err := d.Review.Stats(ctx, args[0])
				if err != nil {
					return fmt.Errorf("loading stats: %w", err)
				}
				fmt.Printf("Fact-checker %s\n", stats.FactCheckerID)
				fmt.Printf("  Sessions:           %d (%d expired)\n", stats.Sessions, stats.ExpiredSessionsCount)
				fmt.Printf("  Time reviewing:     %s\n", formatSeconds(stats.TotalSeconds))
				fmt.Printf("  Average session:    %s\n", formatSeconds(int64(stats.AverageSeconds)))
				fmt.Printf("  Verdicts authored:  %d\n", stats.VerdictsAuthored)
				fmt.Printf("  Active assignments: %d\n", stats.ActiveAssignments)
				return nil
			})
		},
	}
}

func newReviewExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Close abandoned review sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				n, err := d.Review.ExpireSessions(ctx)
				if err != nil {
					return fmt.Errorf("expiring sessions: %w", err)
				}
				fmt.Printf("Expired %s\n", plural(n, "session"))
				return nil
			})
		},
	}
}
