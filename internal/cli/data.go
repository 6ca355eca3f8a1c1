package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/sportshub/internal/config"
	"github.com/pfrederiksen/sportshub/internal/scraper"
)

type dataOptions struct {
	*rootOptions
	format   string
	headless bool
	sports   []string
	tabs     int
}

func newDataCmd(root *rootOptions) *cobra.Command {
	opts := &dataOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage the stored events",
	}
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")

	scrape := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape listing pages for new events",
		Args:  cobra.NoArgs,
		RunE:  opts.runScrape,
	}
	scrape.Flags().BoolVar(&opts.headless, "headless", true, "Run the browser without a window")
	scrape.Flags().StringSliceVar(&opts.sports, "sport", nil, "Sport listing to scrape, repeatable; 'all' for every listing")

	update := &cobra.Command{
		Use:   "update",
		Short: "Resolve stream links for events that have none",
		Args:  cobra.NoArgs,
		RunE:  opts.runUpdate,
	}
	update.Flags().IntVar(&opts.tabs, "tabs", 10, "Number of browser tabs working in parallel")
	update.Flags().BoolVar(&opts.headless, "headless", true, "Run the browser without a window")

	info := &cobra.Command{
		Use:   "info",
		Short: "Show what is stored",
		Args:  cobra.NoArgs,
		RunE:  opts.runInfo,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored event",
		Args:  cobra.NoArgs,
		RunE:  opts.runClear,
	}

	cmd.AddCommand(scrape, update, info, clearCmd)
	return cmd
}

// prepare loads config, applies explicitly set flags and validates the format.
func (o *dataOptions) prepare(cmd *cobra.Command) (*config.Config, OutputFormat, error) {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return nil, "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}

	cfg, err := o.load()
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.Browser.Headless = o.headless
	}
	if flags.Changed("sport") {
		cfg.Scraper.Sports = o.sports
	}
	if flags.Changed("tabs") {
		cfg.Browser.Tabs = o.tabs
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
	}
	return cfg, format, nil
}

func (o *dataOptions) runScrape(cmd *cobra.Command, _ []string) error {
	cfg, format, err := o.prepare(cmd)
	if err != nil {
		return err
	}
	sources, err := scraper.LookupSources(cfg.Scraper.Sports)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := openPipeline(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	purged, err := p.purge(ctx)
	if err != nil {
		return err
	}

	reports, err := p.scrape(ctx, sources, cfg.Browser.Headless)
	if err != nil {
		return fmt.Errorf("scraping listings: %w", err)
	}

	return WriteOutput(cmd.OutOrStdout(), &ScrapeResult{Purged: purged, Sources: reports}, format)
}

func (o *dataOptions) runUpdate(cmd *cobra.Command, _ []string) error {
	cfg, format, err := o.prepare(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := openPipeline(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer p.Close()

	purged, err := p.purge(ctx)
	if err != nil {
		return err
	}

	report, err := p.enrich(ctx, cfg.Browser.Tabs, cfg.Browser.Headless)
	if err != nil {
		return fmt.Errorf("updating links: %w", err)
	}

	return WriteOutput(cmd.OutOrStdout(), &UpdateResult{Purged: purged, Report: report}, format)
}

func (o *dataOptions) runInfo(cmd *cobra.Command, _ []string) error {
	cfg, format, err := o.prepare(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := openPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	stats, err := p.store.Stats(ctx)
	if err != nil {
		return err
	}
	leagues, err := p.store.Leagues(ctx)
	if err != nil {
		return err
	}
	sports, err := p.store.Sports(ctx)
	if err != nil {
		return err
	}

	return WriteOutput(cmd.OutOrStdout(), &InfoResult{
		Driver:  p.store.Driver(),
		Stats:   stats,
		Leagues: leagues,
		Sports:  sports,
	}, format)
}

func (o *dataOptions) runClear(cmd *cobra.Command, _ []string) error {
	cfg, format, err := o.prepare(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := openPipeline(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	deleted, err := p.store.DeleteAll(ctx)
	if err != nil {
		return err
	}
	return WriteOutput(cmd.OutOrStdout(), &ClearResult{Deleted: deleted}, format)
}
