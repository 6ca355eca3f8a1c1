// Package cli implements the command-line interface for sportshub.
//
// The cli package provides the Cobra-based CLI: data scrape, update, info and
// clear manage the event store, and serve exposes it over HTTP. Every command
// that touches fixtures first purges events older than the retention window.
package cli
