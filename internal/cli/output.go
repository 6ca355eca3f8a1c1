package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/sportshub/internal/enrich"
	"github.com/pfrederiksen/sportshub/internal/scraper"
	"github.com/pfrederiksen/sportshub/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// textWriter is implemented by results that have a human-readable form.
type textWriter interface {
	writeText(w io.Writer) error
}

// ScrapeResult is printed by data scrape.
type ScrapeResult struct {
	Purged  int64                  `json:"purged"`
	Sources []scraper.IngestReport `json:"sources"`
}

// UpdateResult is printed by data update.
type UpdateResult struct {
	Purged int64          `json:"purged"`
	Report *enrich.Report `json:"report"`
}

// InfoResult is printed by data info.
type InfoResult struct {
	Driver  string                  `json:"driver"`
	Stats   storage.Stats           `json:"stats"`
	Leagues []storage.LeagueCountry `json:"leagues"`
	Sports  []string                `json:"sports"`
}

// ClearResult is printed by data clear.
type ClearResult struct {
	Deleted int64 `json:"deleted"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result interface{}, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		tw, ok := result.(textWriter)
		if !ok {
			return fmt.Errorf("no text form for %T", result)
		}
		return tw.writeText(w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (r *ScrapeResult) writeText(w io.Writer) error {
	if r.Purged > 0 {
		fmt.Fprintf(w, "Purged %d past events\n", r.Purged)
	}

	inserted, failed := 0, 0
	for _, s := range r.Sources {
		inserted += s.Inserted
		if s.Error != "" {
			failed++
			fmt.Fprintf(w, "%-20s FAILED: %s\n", s.Sport, s.Error)
			continue
		}
		fmt.Fprintf(w, "%-20s seen %d, new %d, duplicates %d, skipped %d\n",
			s.Sport, s.Seen, s.Inserted, s.Duplicates, s.Skipped)
	}

	fmt.Fprintf(w, "\nTotal: %d new events from %d listings", inserted, len(r.Sources))
	if failed > 0 {
		fmt.Fprintf(w, " (%d failed)", failed)
	}
	fmt.Fprintln(w)
	return nil
}

func (r *UpdateResult) writeText(w io.Writer) error {
	if r.Purged > 0 {
		fmt.Fprintf(w, "Purged %d past events\n", r.Purged)
	}
	rep := r.Report
	if rep == nil || rep.Total == 0 {
		fmt.Fprintln(w, "No events waiting for links.")
		return nil
	}

	fmt.Fprintf(w, "Checked %d events with %d tabs in %s\n", rep.Total, rep.Workers, rep.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Enriched: %d\n", rep.Enriched)
	fmt.Fprintf(w, "  No links: %d\n", rep.Empty)
	fmt.Fprintf(w, "  Failed:   %d\n", len(rep.Failed))
	for _, f := range rep.Failed {
		fmt.Fprintf(w, "    %s: %s\n", f.URL, f.Reason)
	}
	return nil
}

func (r *InfoResult) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Database: %s\n", r.Driver)
	fmt.Fprintf(w, "Events:   %d (%d with links, %d pending)\n", r.Stats.Total, r.Stats.Active, r.Stats.Pending)

	if len(r.Sports) > 0 {
		fmt.Fprintf(w, "Sports:   %s\n", strings.Join(r.Sports, ", "))
	}
	if len(r.Leagues) > 0 {
		fmt.Fprintf(w, "\nLeagues (%d):\n", len(r.Leagues))
		for _, l := range r.Leagues {
			fmt.Fprintf(w, "  %s (%s)\n", l.League, l.Country)
		}
	}
	return nil
}

func (r *ClearResult) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Deleted %d events\n", r.Deleted)
	return nil
}
