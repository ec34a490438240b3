package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <user> <permission>",
		Short: "Tell whether a user holds a permission and why",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return a.with(cmd, func(ctx context.Context, env *Env) error {
				d, err := env.Service.Check(ctx, userID, args[1])
				if err != nil {
					return err
				}
				verdict := "denied"
				if d.Granted {
					verdict = "granted"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", verdict, d.Source)
				return nil
			})
		},
	}
}
