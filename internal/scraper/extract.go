package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DomErrorKind classifies a failed field extraction.
type DomErrorKind int

const (
	KindUnknown DomErrorKind = iota
	KindNotFound
	KindNoAttributeFound
)

func (k DomErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "no tag found"
	case KindNoAttributeFound:
		return "no attribute found"
	default:
		return "unknown dom parse error"
	}
}

// DomParseError reports which field of an event card could not be read.
type DomParseError struct {
	Field    string
	Selector string
	Kind     DomErrorKind
}

func (e *DomParseError) Error() string {
	return fmt.Sprintf("extracting %s (%s): %s", e.Field, e.Selector, e.Kind)
}

// Is matches another *DomParseError by Kind, so errors.Is(err, ErrNotFound) works.
func (e *DomParseError) Is(target error) bool {
	t, ok := target.(*DomParseError)
	if !ok {
		return false
	}
	return t.Field == "" && t.Selector == "" && t.Kind == e.Kind
}

var (
	ErrNotFound         = &DomParseError{Kind: KindNotFound}
	ErrNoAttributeFound = &DomParseError{Kind: KindNoAttributeFound}
)

// Selectors holds every CSS selector the scraper depends on.
type Selectors struct {
	ListContainer string
	EventCard     string
	URL           string
	Name          string
	Info          string
	Country       string

	EventContent string
	Links        string
	LinksXPath   string
}

// DefaultSelectors returns the selectors for the current sportshub markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ListContainer: ".list-events",
		EventCard:     ".wrap-events-item",
		URL:           "a",
		Name:          "span.mr-5",
		Info:          "span.evdesc.event-desc",
		Country:       "i.icon-competitions",

		EventContent: "#content-event",
		Links:        "#links_block table a",
		LinksXPath:   `//*[@class="lnktbj"]/tbody/tr/td[6]/a`,
	}
}

// Fields is the raw data read from one event card.
type Fields struct {
	URL      string
	Home     string
	Away     string
	League   string
	Schedule string
	Country  string
}

// ExtractFields parses a single event card fragment.
func ExtractFields(fragment string, sel Selectors) (Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return Fields{}, &DomParseError{Field: "card", Kind: KindUnknown}
	}
	return ExtractSelection(doc.Selection, sel)
}

// ExtractSelection reads every field from an already parsed card.
func ExtractSelection(card *goquery.Selection, sel Selectors) (Fields, error) {
	var f Fields
	var err error

	if f.URL, err = extractURL(card, sel.URL); err != nil {
		return Fields{}, err
	}

	name, err := extractText(card, "name", sel.Name)
	if err != nil {
		return Fields{}, err
	}
	f.Home, f.Away = splitTeams(name)

	info, err := extractText(card, "info", sel.Info)
	if err != nil {
		return Fields{}, err
	}
	f.League, f.Schedule = splitInfo(info)

	if f.Country, err = extractCountry(card, sel.Country); err != nil {
		return Fields{}, err
	}
	return f, nil
}

func extractURL(card *goquery.Selection, selector string) (string, error) {
	a := card.Find(selector).First()
	if a.Length() == 0 {
		return "", &DomParseError{Field: "url", Selector: selector, Kind: KindNotFound}
	}
	href, ok := a.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", &DomParseError{Field: "url", Selector: selector, Kind: KindNoAttributeFound}
	}
	return strings.TrimSpace(href), nil
}

func extractText(card *goquery.Selection, field, selector string) (string, error) {
	node := card.Find(selector).First()
	if node.Length() == 0 {
		return "", &DomParseError{Field: field, Selector: selector, Kind: KindNotFound}
	}
	return strings.TrimSpace(node.Text()), nil
}

func extractCountry(card *goquery.Selection, selector string) (string, error) {
	icon := card.Find(selector).First()
	if icon.Length() == 0 {
		return "", &DomParseError{Field: "country", Selector: selector, Kind: KindNotFound}
	}
	style, ok := icon.Attr("style")
	if !ok {
		return "", &DomParseError{Field: "country", Selector: selector, Kind: KindNoAttributeFound}
	}
	country := countryFromStyle(style)
	if country == "" {
		return "", &DomParseError{Field: "country", Selector: selector, Kind: KindUnknown}
	}
	return country, nil
}

// countryFromStyle pulls "england" out of
// "background-image: url(https://.../competitions/england.svg);".
func countryFromStyle(style string) string {
	style = strings.TrimSpace(style)
	if i := strings.LastIndex(style, "/"); i >= 0 {
		style = style[i+1:]
	}
	style = strings.ReplaceAll(style, ");", "")
	style = strings.ReplaceAll(style, ")", "")
	style = strings.Trim(style, `"'; `)
	return strings.TrimSuffix(style, ".svg")
}

// splitTeams splits "Arsenal – Chelsea" on the en or em dash.
func splitTeams(name string) (home, away string) {
	name = strings.ReplaceAll(name, "—", "–")
	parts := strings.SplitN(name, "–", 2)

	home = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		away = strings.TrimSpace(parts[1])
	}
	if home == "" {
		home = "???"
	}
	if away == "" {
		away = "???"
	}
	return home, away
}

// splitInfo splits "Premier League / 1st February at 0:00".
func splitInfo(info string) (league, schedule string) {
	parts := strings.SplitN(info, "/", 2)
	if len(parts) == 1 {
		return "Unknown", strings.TrimSpace(parts[0])
	}
	league = strings.TrimSpace(parts[0])
	if league == "" {
		league = "Unknown"
	}
	return league, strings.TrimSpace(parts[1])
}
