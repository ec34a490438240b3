// Package cli implements the gatectl administration commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fernandezvara/gatekit"
)

// Env is what a command needs from an opened gatekit instance.
type Env struct {
	Service *gatekit.Service
	Migrate func(ctx context.Context) ([]string, error)
	Close   func() error
}

// Opener connects to gatekit using the loaded configuration.
type Opener func(ctx context.Context, cfg gatekit.Config, logger *logrus.Logger) (*Env, error)

// DefaultOpener opens a database backed instance through gatekit.Open.
func DefaultOpener(ctx context.Context, cfg gatekit.Config, logger *logrus.Logger) (*Env, error) {
	inst, err := gatekit.Open(ctx, cfg, logger, nil)
	if err != nil {
		return nil, err
	}
	return &Env{Service: inst.Service, Migrate: inst.Migrate, Close: inst.Close}, nil
}

type app struct {
	configFile string
	open       Opener
	cfg        gatekit.Config
	logger     *logrus.Logger
}

// Execute runs gatectl with the process arguments.
func Execute() {
	if err := NewRootCommand(DefaultOpener).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree. open is called once per command.
func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "gatekit administration",
		Long:          `Manage gatekit roles, permissions and user grants.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (yaml); GATEKIT_* variables override it")

	root.AddCommand(
		a.migrateCommand(),
		a.seedCommand(),
		a.checkCommand(),
		a.roleCommand(),
		a.permCommand(),
		a.userCommand(),
	)
	return root
}

// setup loads config and tags the command context with a fresh request id and
// the configured actor so every mutation it makes can be traced in the audit log.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = gatekit.NewLogger(cfg.Log, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ActorID != 0 {
		ctx = gatekit.WithActorID(ctx, cfg.ActorID)
	}
	cmd.SetContext(gatekit.WithRequestID(ctx, uuid.NewString()))
	return nil
}

// with opens the instance, runs fn and closes the instance.
func (a *app) with(cmd *cobra.Command, fn func(ctx context.Context, env *Env) error) error {
	ctx := cmd.Context()
	env, err := a.open(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if env.Close != nil {
			if err := env.Close(); err != nil {
				a.logger.WithError(err).Warn("close failed")
			}
		}
	}()
	return fn(ctx, env)
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}
