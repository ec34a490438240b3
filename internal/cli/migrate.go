package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the gatekit tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				applied, err := env.Migrate(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(applied) == 0 {
					fmt.Fprintln(out, "schema is up to date")
					return nil
				}
				for _, id := range applied {
					fmt.Fprintf(out, "applied %s\n", id)
				}
				return nil
			})
		},
	}
}
