package enrich

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/sportshub/internal/browser"
	"github.com/pfrederiksen/sportshub/internal/event"
	"github.com/pfrederiksen/sportshub/internal/logger"
	"github.com/pfrederiksen/sportshub/internal/scraper"
)

// DefaultMaxTabs caps the number of concurrent tabs.
const DefaultMaxTabs = 32

// PendingSource provides the snapshot of events still lacking links.
type PendingSource interface {
	Pending(ctx context.Context) ([]event.Event, error)
}

// LinkStore is the per-worker storage connection.
type LinkStore interface {
	UpdateLinks(ctx context.Context, url, links string) (int64, error)
	Close() error
}

// ConnectFunc opens a fresh storage connection for one worker.
type ConnectFunc func(ctx context.Context) (LinkStore, error)

// Scheduler resolves stream links for pending events with a fixed pool of
// workers. Each worker owns one tab and one storage connection.
//
// Only one run may be in flight per storage backend; callers serialize runs.
type Scheduler struct {
	Browser     browser.Browser
	Source      PendingSource
	Connect     ConnectFunc
	Workers     int
	MaxTabs     int
	PageTimeout time.Duration
	Selectors   scraper.Selectors
	OnProgress  ProgressFunc
	Metrics     *logger.Metrics
}

// worker holds resources owned by exactly one goroutine.
type worker struct {
	id       int
	runID    string
	tab      browser.Tab
	store    LinkStore
	events   []event.Event
	sel      scraper.Selectors
	timeout  time.Duration
	metrics  *logger.Metrics
	outcomes []Outcome
}

// Run snapshots the pending events, partitions them across workers and
// waits for every worker. Per-event failures are collected in the report;
// storage errors and worker panics fail the whole run.
func (s *Scheduler) Run(ctx context.Context) (*Report, error) {
	if s.Workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", s.Workers)
	}

	start := time.Now()
	report := &Report{RunID: uuid.NewString()}

	pending, err := s.Source.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pending events: %w", err)
	}
	report.Total = len(pending)
	s.metrics().SetGauge("enrich.pending", float64(len(pending)))
	if len(pending) == 0 {
		logger.Info("No events waiting for links", logger.Fields{"run_id": report.RunID})
		return report, nil
	}

	n := s.workerCount(len(pending))
	report.Workers = n

	workers, err := s.prepare(ctx, report.RunID, Partition(pending, n))
	if err != nil {
		return nil, err
	}

	logger.Info("Starting link enrichment", logger.Fields{
		"run_id":  report.RunID,
		"pending": len(pending),
		"workers": n,
	})

	progress := NewProgress(len(pending), s.OnProgress)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() (err error) {
			defer w.close()
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker %d panicked: %v\n%s", w.id, r, debug.Stack())
				}
			}()
			return w.run(gctx, progress)
		})
	}
	runErr := g.Wait()

	for _, w := range workers {
		for _, o := range w.outcomes {
			report.add(o)
		}
	}
	report.Duration = time.Since(start)

	fields := logger.Fields{
		"run_id":   report.RunID,
		"total":    report.Total,
		"enriched": report.Enriched,
		"empty":    report.Empty,
		"failed":   len(report.Failed),
		"duration": report.Duration.String(),
	}
	if runErr != nil {
		logger.Error("Link enrichment aborted", fields, runErr)
		return report, fmt.Errorf("enrichment run %s: %w", report.RunID, runErr)
	}
	logger.Info("Link enrichment finished", fields)
	return report, nil
}

func (s *Scheduler) workerCount(pending int) int {
	n := s.Workers
	maxTabs := s.MaxTabs
	if maxTabs <= 0 {
		maxTabs = DefaultMaxTabs
	}
	n = min(n, maxTabs, pending)
	return max(n, 1)
}

// prepare opens every tab and connection before any worker starts, so a
// resource failure aborts the run without partial work.
func (s *Scheduler) prepare(ctx context.Context, runID string, chunks [][]event.Event) ([]*worker, error) {
	sel := s.Selectors
	if sel.Links == "" {
		sel = scraper.DefaultSelectors()
	}

	workers := make([]*worker, 0, len(chunks))
	cleanup := func() {
		for _, w := range workers {
			w.close()
		}
	}

	for i, chunk := range chunks {
		tab, err := s.Browser.NewTab(ctx)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("opening tab for worker %d: %w", i, err)
		}
		store, err := s.Connect(ctx)
		if err != nil {
			tab.Close()
			cleanup()
			return nil, fmt.Errorf("connecting storage for worker %d: %w", i, err)
		}
		workers = append(workers, &worker{
			id:      i,
			runID:   runID,
			tab:     tab,
			store:   store,
			events:  chunk,
			sel:     sel,
			timeout: s.PageTimeout,
			metrics: s.metrics(),
		})
	}
	return workers, nil
}

func (s *Scheduler) metrics() *logger.Metrics {
	if s.Metrics != nil {
		return s.Metrics
	}
	return logger.DefaultMetrics()
}

func (w *worker) close() {
	if w.tab != nil {
		w.tab.Close()
		w.tab = nil
	}
	if w.store != nil {
		w.store.Close()
		w.store = nil
	}
}

func (w *worker) run(ctx context.Context, progress *Progress) error {
	for _, evt := range w.events {
		if err := ctx.Err(); err != nil {
			return err
		}

		o, err := w.process(ctx, evt)
		if err != nil {
			return err
		}
		w.outcomes = append(w.outcomes, o)
		w.metrics.IncrCounter("enrich." + o.Status.String())
		w.metrics.RecordTiming("enrich.page", o.Duration)

		if o.Status == StatusFailed {
			logger.Warn("Event enrichment failed", logger.Fields{
				"run_id": w.runID,
				"worker": w.id,
				"url":    o.URL,
				"reason": o.Reason,
			})
		}
		progress.Step()
	}
	return nil
}

// process handles one event. The returned error is fatal to the run; page
// problems are reported through the Outcome instead.
func (w *worker) process(ctx context.Context, evt event.Event) (Outcome, error) {
	start := time.Now()
	o := Outcome{URL: evt.URL}

	links, err := w.fetchLinks(ctx, evt.URL)
	o.Duration = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return o, ctx.Err()
		}
		o.Status = StatusFailed
		o.Reason = err.Error()
		return o, nil
	}

	if len(links) == 0 {
		o.Status = StatusEmpty
		return o, nil
	}

	rows, err := w.store.UpdateLinks(ctx, event.CanonicalURL(evt.URL), event.JoinLinks(links))
	if err != nil {
		return o, err
	}
	if rows == 0 {
		o.Status = StatusFailed
		o.Reason = "no stored event matches url"
		return o, nil
	}

	o.Status = StatusEnriched
	o.Links = len(links)
	return o, nil
}

func (w *worker) fetchLinks(ctx context.Context, url string) ([]string, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.tab.Navigate(ctx, url); err != nil {
		return nil, err
	}
	if err := w.tab.WaitFor(ctx, w.sel.EventContent); err != nil {
		return nil, err
	}
	return ExtractLinks(ctx, w.tab, w.sel)
}

// ExtractLinks reads stream hrefs from the loaded event page. The links
// table is looked up by CSS first and by the older XPath layout when the
// CSS selector finds nothing. Only hrefs containing "//" are kept.
func ExtractLinks(ctx context.Context, tab browser.Tab, sel scraper.Selectors) ([]string, error) {
	elems, err := tab.Query(ctx, sel.Links)
	if errors.Is(err, browser.ErrNoElements) && sel.LinksXPath != "" {
		elems, err = tab.QueryXPath(ctx, sel.LinksXPath)
	}
	if errors.Is(err, browser.ErrNoElements) || errors.Is(err, browser.ErrUnsupported) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var links []string
	for _, e := range elems {
		href, ok := e.Attribute("href")
		if !ok || !strings.Contains(href, "//") {
			continue
		}
		links = append(links, strings.TrimSpace(href))
	}
	return links, nil
}
