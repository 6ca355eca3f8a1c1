package scraper

import (
	"fmt"
	"strings"
)

// Source is one sport listing page.
type Source struct {
	Sport string `json:"sport" mapstructure:"sport"`
	URL   string `json:"url" mapstructure:"url"`
}

// DefaultSport is scraped when no sport is requested.
const DefaultSport = "Football"

var catalog = []Source{
	{"Football", "https://reddit3.sportshub.stream/"},
	{"AmericanFootball", "https://football.sportshub.stream/"},
	{"Basketball", "https://basketball2.sportshub.stream/"},
	{"Baseball", "https://baseball.sportshub.stream/"},
	{"Hockey", "https://hockey.sportshub.stream"},
	{"Tennis", "https://tennis.sportshub.stream/"},
	{"Boxing", "https://boxing1.sportshub.stream/"},
	{"Fights", "https://mma.sportshub.stream/"},
	{"Motorsports", "https://motorsport.sportshub.stream/"},
	{"HorseRacing", "https://sportshub.stream/horse-racing-streams/"},
	{"Rugby", "https://rugby.sportshub.stream/"},
	{"RugbyUnion", "https://sportshub.stream/rugby-union-streams/"},
	{"RugbySevens", "https://sportshub.stream/rugby-sevens-streams/"},
	{"Cycling", "https://cycling.sportshub.stream/"},
	{"Cricket", "https://cricket.sportshub.stream/"},
	{"Golf", "https://golf.sportshub.stream/"},
	{"AFL", "https://afl.sportshub.stream/"},
	{"Volleyball", "https://volleyball.sportshub.stream/"},
	{"Snooker", "https://snooker.sportshub.stream/"},
	{"Darts", "https://darts1.sportshub.stream/"},
	{"Watersports", "https://sportshub.stream/water-sports-streams/"},
	{"SummerSports", "https://sportshub.stream/summer-sports-streams/"},
	{"BeachSports", "https://sportshub.stream/beach-soccer-streams/"},
	{"Esports", "https://sportshub.stream/esports-streams/"},
	{"Handball", "https://handball.sportshub.stream/"},
	{"Athletics", "https://sportshub.stream/athletics-streams/"},
	{"Triathlon", "https://sportshub.stream/thriatlon-streams/"},
	{"BeachVolley", "https://sportshub.stream/beach-volley-streams/"},
	{"WaterPolo", "https://sportshub.stream/water-polo-streams/"},
	{"Badminton", "https://badminton.sportshub.stream/"},
	{"Floorball", "https://sportshub.stream/floorball-streams/"},
	{"FieldHockey", "https://sportshub.stream/field-hockey-streams/"},
	{"TableTennis", "https://sportshub.stream/table-tennis-streams/"},
	{"Rowing", "https://sportshub.stream/rowing-streams/"},
	{"Futsal", "https://sportshub.stream/futsal-streams/"},
	{"Netball", "https://sportshub.stream/netball-streams/"},
	{"WinterSports", "https://sportshub.stream/winter-sports-streams/"},
	{"Curling", "https://sportshub.stream/curling-streams/"},
}

// Catalog returns a copy of every known sport listing.
func Catalog() []Source {
	out := make([]Source, len(catalog))
	copy(out, catalog)
	return out
}

// LookupSources resolves sport names case-insensitively. "all" selects the
// whole catalog and an empty list selects DefaultSport.
func LookupSources(names []string) ([]Source, error) {
	if len(names) == 0 {
		names = []string{DefaultSport}
	}

	var out []Source
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, "all") {
			return Catalog(), nil
		}
		src, ok := findSource(name)
		if !ok {
			return nil, fmt.Errorf("unknown sport: %s", name)
		}
		if seen[src.Sport] {
			continue
		}
		seen[src.Sport] = true
		out = append(out, src)
	}
	return out, nil
}

func findSource(name string) (Source, bool) {
	for _, s := range catalog {
		if strings.EqualFold(s.Sport, name) {
			return s, true
		}
	}
	return Source{}, false
}
