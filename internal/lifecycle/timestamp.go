// Package lifecycle decides automatic appointment status transitions from an
// appointment snapshot and the current time.
package lifecycle

import (
	"strings"
	"time"

	"github.com/harentsoaR/medibook-api/internal/models"
)

type legacyLayout struct {
	layout string
	noYear bool
}

// Tried in order, first match wins. Layouts without a year take the year of
// the reference time.
var legacyLayouts = []legacyLayout{
	{layout: "Jan 2, 2006 3:04 PM"},
	{layout: "January 2, 2006 3:04 PM"},
	{layout: "2 Jan 2006 3:04 PM"},
	{layout: "02/01/2006 3:04 PM"},
	{layout: "2006-01-02 3:04 PM"},
	{layout: "Jan 2, 2006 15:04"},
	{layout: "2006-01-02 15:04"},
	{layout: "Jan 2, 2006"},
	{layout: "January 2, 2006"},
	{layout: "2 Jan 2006"},
	{layout: "02/01/2006"},
	{layout: "2006-01-02"},
	{layout: "Jan 2 3:04 PM", noYear: true},
	{layout: "Jan 2", noYear: true},
}

// ParseLegacyTimestamp recovers a point in time from the free-text date and
// time strings stored on older appointments. clock may be empty. Parsing
// happens in ref's location. ok is false when no known layout matches.
func ParseLegacyTimestamp(date, clock string, ref time.Time) (t time.Time, ok bool) {
	value := strings.TrimSpace(date)
	if c := strings.TrimSpace(clock); c != "" {
		value += " " + c
	}
	if value == "" {
		return time.Time{}, false
	}
	// Month names match case-insensitively but AM/PM must be upper case.
	value = strings.Join(strings.Fields(strings.ToUpper(value)), " ")

	for _, l := range legacyLayouts {
		parsed, err := time.ParseInLocation(l.layout, value, ref.Location())
		if err != nil {
			continue
		}
		if l.noYear {
			// Parsed in year 0, a leap year. Feb 29 has no match in other years.
			withYear := time.Date(ref.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), 0, 0, ref.Location())
			if withYear.Day() != parsed.Day() {
				continue
			}
			parsed = withYear
		}
		return parsed, true
	}
	return time.Time{}, false
}

// Date spellings found in the date field of stored appointments.
var dateKeyLayouts = []string{
	models.DisplayDateLayout,
	"Jan 2, 2006",
	"January 2, 2006",
	"January 02, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"02/01/2006",
	"2006-01-02",
}

// DateKeys lists the strings a stored appointment on day may carry as its
// date, the current display layout first.
func DateKeys(day time.Time) []string {
	keys := make([]string, 0, len(dateKeyLayouts))
	seen := make(map[string]bool, len(dateKeyLayouts))
	for _, layout := range dateKeyLayouts {
		k := day.Format(layout)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// IsPast reports whether the appointment time lies strictly before now.
// Unparseable input is never past, so an ambiguous record is not completed
// by mistake.
func IsPast(date, clock string, now time.Time) bool {
	t, ok := ParseLegacyTimestamp(date, clock, now)
	return ok && t.Before(now)
}

// ScheduledTime prefers the machine timestamp and falls back to the display
// strings for records that predate it.
func ScheduledTime(apt *models.Appointment, now time.Time) (time.Time, bool) {
	if apt.ScheduledAt != nil && !apt.ScheduledAt.IsZero() {
		return *apt.ScheduledAt, true
	}
	return ParseLegacyTimestamp(apt.Date, apt.Time, now)
}
