// Package event provides the Event model for scraped sports fixtures.
//
// An Event is keyed by its detail-page URL and carries the comma-joined
// stream links found on that page once enrichment has run. The package also
// normalizes the listing page's schedule text ("1st February at 0:00") into
// an absolute UTC instant, picking the closest year because the site omits it.
package event
