package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fernandezvara/gatekit"
)

func (a *app) seedCommand() *cobra.Command {
	var manifest string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the permissions and roles declared in a manifest",
		Long: `Seed reads a YAML manifest and makes sure every permission, role and
role grant it declares exists, together with the superadmin role. Running it
again with the same manifest changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := manifest
			if path == "" {
				path = a.cfg.ManifestPath
			}
			if path == "" {
				return errors.New("no manifest: pass --manifest or set manifest_path")
			}
			registry, err := gatekit.LoadManifest(path)
			if err != nil {
				return err
			}

			return a.with(cmd, func(ctx context.Context, env *Env) error {
				report, err := env.Service.Bootstrap(ctx, registry)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "permissions created: %d\nroles created: %d\ngrants added: %d\n",
					report.PermissionsCreated, report.RolesCreated, report.GrantsAdded)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "manifest file (defaults to manifest_path from config)")
	return cmd
}
