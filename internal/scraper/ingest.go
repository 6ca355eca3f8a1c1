package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/sportshub/internal/browser"
	"github.com/pfrederiksen/sportshub/internal/event"
	"github.com/pfrederiksen/sportshub/internal/logger"
)

// EventWriter is the storage the ingestor needs.
type EventWriter interface {
	InsertOrIgnore(ctx context.Context, evt *event.Event) (int64, error)
}

// IngestReport summarizes one listing page.
type IngestReport struct {
	Sport      string `json:"sport"`
	URL        string `json:"url"`
	Seen       int    `json:"seen"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// Ingestor turns listing pages into stored events.
type Ingestor struct {
	Store       EventWriter
	Selectors   Selectors
	PageTimeout time.Duration
	Now         func() time.Time
}

// NewIngestor creates an Ingestor with the default selectors.
func NewIngestor(store EventWriter, pageTimeout time.Duration) *Ingestor {
	return &Ingestor{
		Store:       store,
		Selectors:   DefaultSelectors(),
		PageTimeout: pageTimeout,
		Now:         time.Now,
	}
}

// IngestAll scrapes each source in turn on the same tab. A source whose page
// cannot be loaded is recorded in its report; storage errors stop the pass.
func (in *Ingestor) IngestAll(ctx context.Context, tab browser.Tab, sources []Source) ([]IngestReport, error) {
	reports := make([]IngestReport, 0, len(sources))
	for _, src := range sources {
		report, err := in.Ingest(ctx, tab, src)
		if err != nil {
			var pe *pageError
			if !errors.As(err, &pe) {
				reports = append(reports, report)
				return reports, err
			}
			report.Error = err.Error()
			logger.Warn("Listing page failed", logger.Fields{
				"sport": src.Sport,
				"url":   src.URL,
				"error": err.Error(),
			})
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// pageError marks failures loading the listing, as opposed to storage failures.
type pageError struct {
	err error
}

func (e *pageError) Error() string { return e.err.Error() }
func (e *pageError) Unwrap() error { return e.err }

// Ingest loads one listing page and stores every event card found on it.
func (in *Ingestor) Ingest(ctx context.Context, tab browser.Tab, src Source) (IngestReport, error) {
	html, err := in.fetchListing(ctx, tab, src)
	if err != nil {
		return IngestReport{Sport: src.Sport, URL: src.URL}, &pageError{err: err}
	}
	return in.IngestHTML(ctx, src, html)
}

func (in *Ingestor) fetchListing(ctx context.Context, tab browser.Tab, src Source) (string, error) {
	if in.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.PageTimeout)
		defer cancel()
	}

	if err := tab.Navigate(ctx, src.URL); err != nil {
		return "", err
	}
	if err := tab.WaitFor(ctx, in.Selectors.ListContainer); err != nil {
		return "", err
	}
	return tab.OuterHTML(ctx, in.Selectors.ListContainer)
}

// IngestHTML parses an already fetched listing container and stores its events.
func (in *Ingestor) IngestHTML(ctx context.Context, src Source, html string) (IngestReport, error) {
	report := IngestReport{Sport: src.Sport, URL: src.URL}

	html = strings.NewReplacer("\t", "", "\n", "").Replace(html)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return report, fmt.Errorf("parsing listing: %w", err)
	}

	now := in.now()
	cards := doc.Find(in.Selectors.EventCard)
	for i := range cards.Nodes {
		report.Seen++

		evt, err := in.buildEvent(cards.Eq(i), src, now)
		if err != nil {
			report.Skipped++
			logger.Warn("Skipping event card", logger.Fields{
				"sport": src.Sport,
				"index": i,
				"error": err.Error(),
			})
			continue
		}

		n, err := in.Store.InsertOrIgnore(ctx, evt)
		if err != nil {
			return report, fmt.Errorf("storing event %s: %w", evt.URL, err)
		}
		if n > 0 {
			report.Inserted++
		} else {
			report.Duplicates++
		}
	}

	logger.Info("Ingested listing", logger.Fields{
		"sport":      report.Sport,
		"seen":       report.Seen,
		"inserted":   report.Inserted,
		"duplicates": report.Duplicates,
		"skipped":    report.Skipped,
	})
	return report, nil
}

func (in *Ingestor) buildEvent(card *goquery.Selection, src Source, now time.Time) (*event.Event, error) {
	f, err := ExtractSelection(card, in.Selectors)
	if err != nil {
		return nil, err
	}
	start, err := event.ParseSchedule(f.Schedule, now)
	if err != nil {
		return nil, err
	}
	return event.NewEvent(f.Home, f.Away, start, f.League, f.Country, f.URL, src.Sport), nil
}

func (in *Ingestor) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}
