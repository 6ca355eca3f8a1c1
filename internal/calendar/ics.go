package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/sportshub/internal/event"
)

// EventDuration is the assumed length of a fixture.
const EventDuration = 2 * time.Hour

// GenerateICS renders events as a single iCalendar feed. Events carrying the
// unknown-time marker are left out.
func GenerateICS(events []event.Event, now time.Time) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//sportshub//sportshub//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("X-WR-CALNAME:sportshub streams\r\n")

	for i := range events {
		if events[i].UnknownTime() {
			continue
		}
		writeEvent(&ics, &events[i], now)
	}

	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeEvent(ics *strings.Builder, evt *event.Event, now time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(ics, "UID:%d@sportshub\r\n", evt.ID)
	fmt.Fprintf(ics, "DTSTAMP:%s\r\n", formatICSTime(now))
	fmt.Fprintf(ics, "DTSTART:%s\r\n", formatICSTime(evt.StartTime))
	fmt.Fprintf(ics, "DTEND:%s\r\n", formatICSTime(evt.StartTime.Add(EventDuration)))

	summary := fmt.Sprintf("%s vs %s", evt.Home, evt.Away)
	fmt.Fprintf(ics, "SUMMARY:%s\r\n", escapeICS(summary))

	var desc strings.Builder
	fmt.Fprintf(&desc, "%s - %s (%s)", evt.Sport, evt.League, evt.Country)
	if evt.Enriched() {
		desc.WriteString("\n\nStreams:")
		for _, l := range evt.Links() {
			desc.WriteString("\n" + l)
		}
	}
	fmt.Fprintf(ics, "DESCRIPTION:%s\r\n", escapeICS(desc.String()))
	fmt.Fprintf(ics, "CATEGORIES:%s\r\n", escapeICS(evt.Sport))

	url := evt.URL
	if evt.Enriched() {
		url = evt.Links()[0]
		if strings.HasPrefix(url, "//") {
			url = "https:" + url
		}
	}
	fmt.Fprintf(ics, "URL:%s\r\n", url)

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("TRANSP:TRANSPARENT\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
