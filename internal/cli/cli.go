package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/sportshub/internal/config"
	"github.com/pfrederiksen/sportshub/internal/logger"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sportshub",
		Short: "Scrape sports fixtures and their stream links",
		Long: `A tool that scrapes sports fixtures from sportshub listing pages,
resolves their stream links with a pool of browser tabs, and serves
the result as a JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a config file (default: ./sportshub.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newDataCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

// load reads the configuration and installs the process logger.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if o.verbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.NewWithFormat(level, logger.Format(cfg.Log.Format), os.Stderr))

	logger.Debug("Configuration loaded", logger.Fields{
		"driver": cfg.Database.Driver,
		"engine": cfg.Browser.Engine,
		"tabs":   cfg.Browser.Tabs,
	})
	return cfg, nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
