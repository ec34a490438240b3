package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fernandezvara/gatekit"
)

func (a *app) roleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles and the permissions they bundle",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				id, err := env.Service.CreateRole(ctx, args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created role %s (id %d)\n", args[0], id)
				return nil
			})
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "role description")

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a role; its holders lose what it granted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				if err := env.Service.DeleteRole(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted role %s\n", args[0])
				return nil
			})
		},
	}

	var prefix string
	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				filter := gatekit.NewListFilter().WithPrefix(prefix).WithPagination(limit, offset)
				roles, err := env.Service.ListRoles(ctx, filter)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tDESCRIPTION")
				for _, r := range roles {
					fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Description)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&prefix, "prefix", "", "only names starting with prefix")
	list.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	list.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Show the permissions and members of a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				perms, err := env.Service.RolePermissions(ctx, args[0])
				if err != nil {
					return err
				}
				members, err := env.Service.RoleMembers(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "role: %s\n", args[0])
				fmt.Fprintf(out, "permissions: %v\n", perms)
				fmt.Fprintf(out, "members: %v\n", members)
				return nil
			})
		},
	}

	grant := &cobra.Command{
		Use:   "grant <role> <permission>",
		Short: "Bundle a permission into a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				if err := env.Service.AddPermissionToRole(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "role %s grants %s\n", args[0], args[1])
				return nil
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <role> <permission>",
		Short: "Remove a permission from a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				if err := env.Service.RemovePermissionFromRole(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "role %s no longer grants %s\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(create, del, list, show, grant, revoke)
	return cmd
}
