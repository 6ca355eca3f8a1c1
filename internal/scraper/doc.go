// Package scraper reads sportshub listing pages into events.
//
// Each listing holds a container of event cards. Every card is parsed by a
// set of single-field extractors (url, teams, league and schedule, country)
// so a markup change touches one selector. A card that fails to parse is
// logged and skipped; the rest of the page is still stored. Inserts ignore
// events whose URL is already known, which makes re-scraping idempotent.
package scraper
