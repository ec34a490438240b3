package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fernandezvara/gatekit"
)

func (a *app) userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users and their grants",
	}

	var profile gatekit.UserProfile
	upsert := &cobra.Command{
		Use:   "upsert <user>",
		Short: "Create a user or refresh its profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			p := profile
			p.ExternalID = userID
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				u, err := env.Service.UpsertUser(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d saved\n", u.ExternalID)
				return nil
			})
		},
	}
	upsert.Flags().StringVar(&profile.Username, "username", "", "platform username")
	upsert.Flags().StringVar(&profile.FirstName, "first-name", "", "first name")
	upsert.Flags().StringVar(&profile.LastName, "last-name", "", "last name")
	upsert.Flags().StringVar(&profile.LanguageCode, "language", "", "language code")

	show := &cobra.Command{
		Use:   "show <user>",
		Short: "Show a user with its roles and effective permissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				u, err := env.Service.GetUser(ctx, userID)
				if err != nil {
					return err
				}
				roles, err := env.Service.UserRoles(ctx, userID)
				if err != nil {
					return err
				}
				perms, err := env.Service.EffectivePermissions(ctx, userID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "user: %d %s\n", u.ExternalID, u.DisplayName())
				fmt.Fprintf(out, "active: %t\nblocked: %t\n", u.IsActive, u.IsBlocked)
				fmt.Fprintf(out, "roles: %s\n", strings.Join(roles, ", "))
				fmt.Fprintf(out, "permissions: %s\n", strings.Join(perms, ", "))
				return nil
			})
		},
	}

	cmd.AddCommand(
		upsert,
		show,
		a.userPairCommand("assign <user> <role>", "Assign a role to a user", "assigned",
			func(s *gatekit.Service) func(context.Context, int64, string) error { return s.AssignRole }),
		a.userPairCommand("revoke <user> <role>", "Revoke a role from a user", "revoked",
			func(s *gatekit.Service) func(context.Context, int64, string) error { return s.RevokeRole }),
		a.userPairCommand("grant <user> <permission>", "Grant a permission directly", "granted",
			func(s *gatekit.Service) func(context.Context, int64, string) error { return s.GrantPermission }),
		a.userPairCommand("deny <user> <permission>", "Remove a direct permission grant", "removed",
			func(s *gatekit.Service) func(context.Context, int64, string) error { return s.RevokePermission }),
		a.userFlagCommand("activate <user>", "Mark a user active", "activated",
			func(s *gatekit.Service) func(context.Context, int64) error { return s.ActivateUser }),
		a.userFlagCommand("deactivate <user>", "Mark a user inactive", "deactivated",
			func(s *gatekit.Service) func(context.Context, int64) error { return s.DeactivateUser }),
		a.userFlagCommand("block <user>", "Block a user", "blocked",
			func(s *gatekit.Service) func(context.Context, int64) error { return s.BlockUser }),
		a.userFlagCommand("unblock <user>", "Unblock a user", "unblocked",
			func(s *gatekit.Service) func(context.Context, int64) error { return s.UnblockUser }),
	)
	return cmd
}

// userPairCommand builds a "<verb> <user> <name>" command.
func (a *app) userPairCommand(use, short, done string, op func(*gatekit.Service) func(context.Context, int64, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				if err := op(env.Service)(ctx, userID, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s for user %d\n", done, args[1], userID)
				return nil
			})
		},
	}
}

func (a *app) userFlagCommand(use, short, done string, op func(*gatekit.Service) func(context.Context, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				if err := op(env.Service)(ctx, userID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d %s\n", userID, done)
				return nil
			})
		},
	}
}
