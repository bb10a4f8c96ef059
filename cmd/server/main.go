package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"foodhub/config"
	"foodhub/database"
	"foodhub/fixtures"
	"foodhub/logging"
)

// main runs the API server, or one of the maintenance commands.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// commandContext carries what every command loads before it runs.
type commandContext struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

func (c *commandContext) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	c.cfg, c.log = cfg, log
	return nil
}

func (c *commandContext) fixtures() (*fixtures.Table, error) {
	if c.cfg.FixturesFile == "" {
		return fixtures.Default(), nil
	}
	return fixtures.LoadFile(c.cfg.FixturesFile)
}

func (c *commandContext) connect(ctx context.Context) (*database.Store, error) {
	timeout, err := c.cfg.ConnectTimeout()
	if err != nil {
		return nil, err
	}
	return database.Connect(ctx, c.cfg.Database.URL, c.cfg.Database.Name, timeout, c.log)
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	serve := newServeCommand(cc)
	root := &cobra.Command{
		Use:           "foodhub",
		Short:         "Food delivery marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cc.log != nil {
				_ = cc.log.Sync()
			}
		},
		RunE: serve.RunE,
	}
	root.PersistentFlags().StringVarP(&cc.configPath, "config", "c", "", "Configuration file path (TOML)")

	root.AddCommand(serve)
	root.AddCommand(newSeedCommand(cc))
	root.AddCommand(newReconcileCommand(cc))
	return root
}
