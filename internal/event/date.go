package event

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SentinelYear is the year assigned to the site's "time unknown" token 1-1-1-1.
const SentinelYear = 1990

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// DateParseError is returned when a schedule token cannot be turned into an instant.
type DateParseError struct {
	Input  string
	Reason string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("parsing date %q: %s", e.Input, e.Reason)
}

// NormalizeSchedule rewrites listing text such as "1st February at 0:00"
// into the token "1-2-0-00" (day-month-hour-minute).
func NormalizeSchedule(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, " at ", " ")
	for i, name := range monthNames {
		s = strings.ReplaceAll(s, name, strconv.Itoa(i+1))
	}
	s = strings.ReplaceAll(s, ":", " ")
	s = strings.ReplaceAll(s, " ", "-")

	// ordinal suffixes
	for _, suffix := range []string{"th", "st", "nd", "rd"} {
		s = strings.ReplaceAll(s, suffix, "")
	}
	return s
}

// InstantForYear resolves a normalized token against an explicit year.
// The components must form a real calendar instant: Feb 30 or 24:00 fail.
func InstantForYear(token string, year int) (time.Time, error) {
	parts := strings.Split(token, "-")
	if len(parts) != 4 {
		return time.Time{}, &DateParseError{Input: token, Reason: fmt.Sprintf("expected 4 components, got %d", len(parts))}
	}

	var nums [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return time.Time{}, &DateParseError{Input: token, Reason: fmt.Sprintf("component %q is not a number", p)}
		}
		nums[i] = n
	}
	day, month, hour, minute := nums[0], nums[1], nums[2], nums[3]

	if day == 1 && month == 1 && hour == 1 && minute == 1 {
		year = SentinelYear
	}

	if month < 1 || month > 12 {
		return time.Time{}, &DateParseError{Input: token, Reason: "month out of range"}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, &DateParseError{Input: token, Reason: "time of day out of range"}
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	// time.Date normalizes overflow, so a changed day means the date did not exist
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, &DateParseError{Input: token, Reason: fmt.Sprintf("no such day in %d", year)}
	}
	return t, nil
}

// ClosestYear resolves a year-less token to whichever of last, this or next
// year lies closest to now. Ties go to this year, then next year.
// A candidate that does not exist in its year (Feb 29) is skipped.
func ClosestYear(token string, now time.Time) (time.Time, error) {
	now = now.UTC()
	year := now.Year()

	var (
		best     time.Time
		bestDiff time.Duration
		found    bool
		lastErr  error
	)
	for _, y := range []int{year, year + 1, year - 1} {
		t, err := InstantForYear(token, y)
		if err != nil {
			lastErr = err
			continue
		}
		diff := absDuration(now.Sub(t))
		if !found || diff < bestDiff {
			best, bestDiff, found = t, diff, true
		}
	}
	if !found {
		return time.Time{}, lastErr
	}
	return best, nil
}

// ParseSchedule turns raw listing text into an instant relative to now.
func ParseSchedule(text string, now time.Time) (time.Time, error) {
	return ClosestYear(NormalizeSchedule(text), now)
}

// IsSentinel reports whether t carries the "time unknown" marker year.
func IsSentinel(t time.Time) bool {
	return t.UTC().Year() == SentinelYear
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
