package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/sportshub/internal/api"
	"github.com/pfrederiksen/sportshub/internal/logger"
	"github.com/pfrederiksen/sportshub/internal/scraper"
)

type serveOptions struct {
	*rootOptions
	port        int
	silent      bool
	fullRefresh bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored events over HTTP",
		Args:  cobra.NoArgs,
		RunE:  opts.run,
	}
	cmd.Flags().IntVar(&opts.port, "port", 3000, "Port to listen on")
	cmd.Flags().BoolVar(&opts.silent, "silent", false, "Disable request logging")
	cmd.Flags().BoolVar(&opts.fullRefresh, "full-refresh", false, "Scrape listings and update links before serving")
	return cmd
}

func (o *serveOptions) run(cmd *cobra.Command, _ []string) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = o.port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	p, err := openPipeline(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := p.purge(ctx); err != nil {
		return err
	}

	if o.fullRefresh {
		sources, err := scraper.LookupSources(cfg.Scraper.Sports)
		if err != nil {
			return err
		}
		if err := p.refresh(ctx, sources); err != nil {
			return err
		}
	}

	mode := cfg.Server.Mode
	if o.silent {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	router := api.NewRouter(p.store, api.Options{Silent: o.silent, Pprof: cfg.Server.Pprof})
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting API", logger.Fields{"addr": addr, "mode": mode, "pprof": cfg.Server.Pprof})
	return api.Serve(ctx, addr, router)
}
