package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/sportshub/internal/browser"
	"github.com/pfrederiksen/sportshub/internal/config"
	"github.com/pfrederiksen/sportshub/internal/enrich"
	"github.com/pfrederiksen/sportshub/internal/logger"
	"github.com/pfrederiksen/sportshub/internal/scraper"
	"github.com/pfrederiksen/sportshub/internal/storage"
)

// pipeline ties one store to the scrape and enrichment steps.
type pipeline struct {
	cfg      *config.Config
	store    *storage.Store
	progress io.Writer
	now      func() time.Time
}

func openPipeline(ctx context.Context, cfg *config.Config, progress io.Writer) (*pipeline, error) {
	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return &pipeline{cfg: cfg, store: store, progress: progress, now: time.Now}, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// purge drops events that started longer ago than the retention window.
func (p *pipeline) purge(ctx context.Context) (int64, error) {
	return p.store.Purge(ctx, p.now(), p.cfg.Scraper.Retention)
}

func (p *pipeline) browserOptions(headless bool) browser.Options {
	return browser.Options{
		Engine:    browser.Engine(p.cfg.Browser.Engine),
		Headless:  headless,
		ExecPath:  p.cfg.Browser.ExecPath,
		UserAgent: p.cfg.Browser.UserAgent,
		Timeout:   p.cfg.Browser.PageTimeout,
	}
}

// scrape loads every listing on a single tab and stores new events.
func (p *pipeline) scrape(ctx context.Context, sources []scraper.Source, headless bool) ([]scraper.IngestReport, error) {
	b, err := browser.New(ctx, p.browserOptions(headless))
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	defer b.Close()

	tab, err := b.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	defer tab.Close()

	ingestor := scraper.NewIngestor(p.store, p.cfg.Browser.PageTimeout)
	ingestor.Now = p.now
	return ingestor.IngestAll(ctx, tab, sources)
}

// enrich resolves stream links for every pending event using tabs workers.
func (p *pipeline) enrich(ctx context.Context, tabs int, headless bool) (*enrich.Report, error) {
	b, err := browser.New(ctx, p.browserOptions(headless))
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	defer b.Close()

	sched := &enrich.Scheduler{
		Browser:     b,
		Source:      p.store,
		Connect:     p.connect,
		Workers:     tabs,
		MaxTabs:     p.cfg.Browser.MaxTabs,
		PageTimeout: p.cfg.Browser.PageTimeout,
		Selectors:   scraper.DefaultSelectors(),
		OnProgress:  p.printProgress,
	}
	return sched.Run(ctx)
}

// connect gives each enrichment worker its own storage connection.
func (p *pipeline) connect(ctx context.Context) (enrich.LinkStore, error) {
	s, err := storage.Open(ctx, p.cfg.Database)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (p *pipeline) printProgress(done, total int) {
	if p.progress == nil {
		return
	}
	fmt.Fprintf(p.progress, "\r%d/%d", done, total)
	if done == total {
		fmt.Fprintln(p.progress)
	}
}

// refresh is the full pass used by serve --full-refresh: scrape then enrich.
func (p *pipeline) refresh(ctx context.Context, sources []scraper.Source) error {
	reports, err := p.scrape(ctx, sources, p.cfg.Browser.Headless)
	if err != nil {
		return fmt.Errorf("scraping listings: %w", err)
	}
	inserted := 0
	for _, r := range reports {
		inserted += r.Inserted
	}
	logger.Info("Listings scraped", logger.Fields{"sources": len(reports), "inserted": inserted})

	if _, err := p.enrich(ctx, p.cfg.Browser.Tabs, p.cfg.Browser.Headless); err != nil {
		return fmt.Errorf("updating links: %w", err)
	}
	logger.Info("Refresh metrics", logger.GetMetricsSnapshot().Fields())
	return nil
}
