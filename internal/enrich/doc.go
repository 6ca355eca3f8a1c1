// Package enrich resolves stream links for stored events.
//
// A Scheduler takes one snapshot of the events without links, splits it
// into contiguous chunks and runs one worker per chunk. Each worker owns a
// browser tab and a storage connection for its whole life. Every page load
// runs under its own deadline; a page that fails or times out is recorded
// as a failed outcome and the worker moves on.
package enrich
