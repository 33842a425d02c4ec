package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTrendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Inspect trending topics",
	}

	cmd.AddCommand(
		newTrendingListCmd(),
		newTrendingRefreshCmd(),
		newTrendingAdvisoryCmd(),
	)
	return cmd
}

func newTrendingListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trending topics by engagement",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				topics, err := d.Trending.List(ctx, limit)
				if err != nil {
					return fmt.Errorf("listing topics: %w", err)
				}
				if len(topics) == 0 {
					fmt.Println("No trending topics.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCATEGORY\tENGAGEMENT\tCLAIMS\tHIGH RISK\tLAST ACTIVITY\tLABEL")
				for i := range topics {
					t := topics[i]
					fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\t%s\t%s\t%s\n",
						t.ID, t.Category, t.EngagementScore, len(t.ClaimIDs), yesNo(t.IsHighRisk), formatTime(t.LastActivityAt), truncate(t.Label, 50))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultTrendingLimit, "Maximum number of topics")

	return cmd
}

func newTrendingRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Apply time decay to trending scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				r, err := d.Trending.Refresh(ctx)
				if err != nil {
					return fmt.Errorf("refreshing trending: %w", err)
				}
				fmt.Printf("Rescored %s (%d cooled), decayed %s (%d expired)\n",
					plural(r.ClaimsRescored, "claim"), r.ClaimsCooled, plural(r.TopicsDecayed, "topic"), r.TopicsExpired)
				return nil
			})
		},
	}
}

func newTrendingAdvisoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advisory <topic-id>",
		Short: "Draft advisory content for a topic now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				if d.Config.LLM.APIKey == "" {
					return errNoLLM
				}
				a, err := d.Trending.Advisory(ctx, args[0])
				if err != nil {
					return fmt.Errorf("writing advisory: %w", err)
				}
				fmt.Printf("%s\n\n%s\n", a.Title, a.Body)
				return nil
			})
		},
	}
}
