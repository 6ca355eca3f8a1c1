package event

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// UnknownTeam stands in for a side of the fixture that could not be parsed.
const UnknownTeam = "???"

// UnknownLeague is used when the listing card carries no league text.
const UnknownLeague = "Unknown"

// Event is one scheduled fixture scraped from a sport listing page.
// It doubles as the gorm model for the events table.
type Event struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Home       string    `gorm:"not null"`
	Away       string    `gorm:"not null"`
	StartTime  time.Time `gorm:"not null;index"`
	League     string    `gorm:"not null;index"`
	Country    string    `gorm:"not null"`
	URL        string    `gorm:"column:url;not null;uniqueIndex"`
	StreamLink string    `gorm:"not null;default:'';index"`
	Sport      string    `gorm:"not null;index"`
}

// NewEvent creates an Event that has not been enriched yet. The URL is stored
// in its canonical (percent-decoded) form so enrichment can key updates on it.
func NewEvent(home, away string, start time.Time, league, country, rawURL, sport string) *Event {
	if strings.TrimSpace(home) == "" {
		home = UnknownTeam
	}
	if strings.TrimSpace(away) == "" {
		away = UnknownTeam
	}
	if strings.TrimSpace(league) == "" {
		league = UnknownLeague
	}
	return &Event{
		Home:      home,
		Away:      away,
		StartTime: start.UTC(),
		League:    league,
		Country:   country,
		URL:       CanonicalURL(rawURL),
		Sport:     sport,
	}
}

// Enriched reports whether stream links have been resolved for the event.
func (e *Event) Enriched() bool {
	return e.StreamLink != ""
}

// Links returns the stream links as a slice.
func (e *Event) Links() []string {
	return SplitLinks(e.StreamLink)
}

// UnknownTime reports whether the start time is the site's "time unknown" marker.
func (e *Event) UnknownTime() bool {
	return IsSentinel(e.StartTime)
}

// CanonicalURL percent-decodes an event URL. The listing page hands out
// encoded hrefs while detail pages are registered under the decoded form.
// The raw value is returned when it is not valid percent-encoding.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// JoinLinks joins stream links with commas, dropping blank entries.
func JoinLinks(links []string) string {
	kept := make([]string, 0, len(links))
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, ",")
}

// SplitLinks is the inverse of JoinLinks. An empty string yields a single
// empty element, which is what API clients have always received.
func SplitLinks(s string) []string {
	return strings.Split(s, ",")
}

type eventJSON struct {
	ID         *uint    `json:"id"`
	Home       string   `json:"home"`
	Away       string   `json:"away"`
	StartTime  int64    `json:"start_time"`
	League     string   `json:"league"`
	Country    string   `json:"country"`
	URL        string   `json:"url"`
	StreamLink []string `json:"stream_link"`
	Sport      string   `json:"sport"`
}

// MarshalJSON encodes start_time as unix seconds and stream_link as an array.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Home:       e.Home,
		Away:       e.Away,
		StartTime:  e.StartTime.Unix(),
		League:     e.League,
		Country:    e.Country,
		URL:        e.URL,
		StreamLink: SplitLinks(e.StreamLink),
		Sport:      e.Sport,
	}
	if e.ID != 0 {
		id := e.ID
		out.ID = &id
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = Event{
		Home:       in.Home,
		Away:       in.Away,
		StartTime:  time.Unix(in.StartTime, 0).UTC(),
		League:     in.League,
		Country:    in.Country,
		URL:        in.URL,
		StreamLink: JoinLinks(in.StreamLink),
		Sport:      in.Sport,
	}
	if in.ID != nil {
		e.ID = *in.ID
	}
	return nil
}
