// Package api exposes stored events over HTTP with gin.
//
// Every listing route returns a JSON array of events. An event's
// stream_link is an array of strings, so an event without links encodes it
// as [""], which existing front ends rely on.
package api
