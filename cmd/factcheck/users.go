package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/services"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Register accounts and manage fact-checkers",
	}

	cmd.AddCommand(
		newUsersRegisterCmd(),
		newUsersListCmd(),
		newUsersShowCmd(),
		newUsersCheckerCmd(),
	)
	return cmd
}

type registerFlags struct {
	id     string
	name   string
	role   string
	email  bool
	noPush bool
}

func newUsersRegisterCmd() *cobra.Command {
	var flags registerFlags

	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Register an account",
		Long:  "Registers a user. Fact-checkers start pending until an admin approves them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				user, err := d.Users.Register(ctx, services.RegisterInput{
					ID:                 flags.id,
					Email:              args[0],
					Name:               flags.name,
					Role:               entities.UserRole(strings.ToLower(strings.TrimSpace(flags.role))),
					EmailNotifications: flags.email,
					PushNotifications:  !flags.noPush,
				})
				if err != nil {
					return fmt.Errorf("registering user: %w", err)
				}
				fmt.Printf("Registered %s %s (%s)\n", user.Role, user.ID, user.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.id, "id", "", "Account ID (default: generated)")
	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&flags.role, "role", "r", string(entities.RoleUser), "Role (user, fact_checker, admin)")
	cmd.Flags().BoolVar(&flags.email, "email-notifications", false, "Deliver notifications by email")
	cmd.Flags().BoolVar(&flags.noPush, "no-push", false, "Disable push notifications")

	return cmd
}

func newUsersListCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts by role",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				users, err := d.Users.List(ctx, role)
				if err != nil {
					return fmt.Errorf("listing users: %w", err)
				}
				if len(users) == 0 {
					fmt.Println("No users found.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSTATUS\tCREATED")
				for i := range users {
					u := users[i]
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, orDash(u.Name), u.Email, u.Status, formatTime(u.CreatedAt))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", string(entities.RoleFactChecker), "Role to list")

	return cmd
}

func newUsersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				u, err := d.Users.Get(ctx, args[0])
				if err != nil {
					return fmt.Errorf("loading user: %w", err)
				}
				fmt.Printf("User %s\n", u.ID)
				fmt.Printf("  Name:   %s\n", orDash(u.Name))
				fmt.Printf("  Email:  %s\n", u.Email)
				fmt.Printf("  Role:   %s\n", u.Role)
				fmt.Printf("  Status: %s\n", u.Status)
				fmt.Printf("  Email notifications: %t, push: %t\n", u.EmailNotifications, u.PushNotifications)
				return nil
			})
		},
	}
}

func newUsersCheckerCmd() *cobra.Command {
	var admin string

	cmd := &cobra.Command{
		Use:   "checker <action> <checker-id>",
		Short: "Run an admin action on a fact-checker",
		Long:  "Actions: approve, reject, suspend, activate, promote.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(ctx, func(d *Deps) error {
				u, err := d.Users.Apply(ctx, admin, args[1], args[0])
				if err != nil {
					return fmt.Errorf("applying %s: %w", args[0], err)
				}
				fmt.Printf("%s is now %s %s\n", u.ID, u.Status, u.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&admin, "admin", "a", "", "Admin ID (required)")
	_ = cmd.MarkFlagRequired("admin")

	return cmd
}
