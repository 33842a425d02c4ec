package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/application/handlers"
)

func newNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Read notification inboxes and send alerts",
	}

	cmd.AddCommand(
		newNotifyListCmd(),
		newNotifyReadCmd(),
		newNotifyReadAllCmd(),
		newNotifyAlertCmd(),
	)
	return cmd
}

func newNotifyListCmd() *cobra.Command {
	var (
		unread bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				items, err := d.Notifications.List(ctx, args[0], unread, limit)
				if err != nil {
					return fmt.Errorf("listing notifications: %w", err)
				}
				if len(items) == 0 {
					fmt.Println("No notifications.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tPRIORITY\tREAD\tCREATED\tTITLE")
				for i := range items {
					n := items[i]
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						n.ID, n.Type, n.Priority, yesNo(n.IsRead), formatTime(n.CreatedAt), truncate(n.Title, 60))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")
	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultInboxLimit, "Maximum number of notifications")

	return cmd
}

func newNotifyReadCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				if err := d.Notifications.MarkRead(ctx, args[0], user); err != nil {
					return fmt.Errorf("marking notification read: %w", err)
				}
				fmt.Printf("Notification %s marked read\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Recipient ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newNotifyReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all <user-id>",
		Short: "Mark every notification for a user read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				n, err := d.Notifications.MarkAllRead(ctx, args[0])
				if err != nil {
					return fmt.Errorf("marking notifications read: %w", err)
				}
				fmt.Printf("Marked %s read\n", plural(n, "notification"))
				return nil
			})
		},
	}
}

type alertFlags struct {
	id       string
	users    []string
	role     string
	message  string
	priority string
}

func newNotifyAlertCmd() *cobra.Command {
	var flags alertFlags

	cmd := &cobra.Command{
		Use:   "alert <title>",
		Short: "Broadcast a system alert",
		Long:  "Sends a system alert to the listed users, or to every active account holding --role. Repeating an alert ID does not notify anyone twice.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				n, err := d.Notifications.Alert(ctx, handlers.AlertRequest{
					AlertID:  flags.id,
					UserIDs:  flags.users,
					Role:     flags.role,
					Title:    args[0],
					Message:  flags.message,
					Priority: flags.priority,
				})
				if err != nil {
					return fmt.Errorf("sending alert: %w", err)
				}
				fmt.Printf("Alert sent to %s\n", plural(n, "user"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.id, "id", "", "Alert ID used to deduplicate repeats (default: generated)")
	cmd.Flags().StringSliceVarP(&flags.users, "user", "u", nil, "Recipient ID (repeatable)")
	cmd.Flags().StringVarP(&flags.role, "role", "r", "user", "Role to alert when no users are given")
	cmd.Flags().StringVarP(&flags.message, "message", "m", "", "Alert body")
	cmd.Flags().StringVarP(&flags.priority, "priority", "p", "", "Priority (low, normal, high)")

	return cmd
}
