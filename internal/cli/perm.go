package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fernandezvara/gatekit"
)

func (a *app) permCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "perm",
		Aliases: []string{"permission"},
		Short:   "Manage permissions",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <module.action>",
		Short: "Create a permission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				id, err := env.Service.CreatePermission(ctx, args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created permission %s (id %d)\n", args[0], id)
				return nil
			})
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "permission description")

	del := &cobra.Command{
		Use:   "delete <module.action>",
		Short: "Delete a permission with every grant of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				if err := env.Service.DeletePermission(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted permission %s\n", args[0])
				return nil
			})
		},
	}

	var module, prefix string
	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				filter := gatekit.NewListFilter().
					WithModule(module).
					WithPrefix(prefix).
					WithPagination(limit, offset)
				perms, err := env.Service.ListPermissions(ctx, filter)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tDESCRIPTION")
				for _, p := range perms {
					fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Description)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&module, "module", "", "only permissions of this module")
	list.Flags().StringVar(&prefix, "prefix", "", "only names starting with prefix")
	list.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	list.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	cmd.AddCommand(create, del, list)
	return cmd
}
