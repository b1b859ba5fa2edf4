// Package availability turns a doctor's weekly opening hours into the bookable
// time slots of a single day, grouped by part of the day.
//
// Everything here is a pure function of its inputs. Missing schedule data is
// treated as open (fail-open) so that an incomplete profile never blocks
// booking entirely.
package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harentsoaR/medibook-api/internal/models"
)

var ErrInvalidArgument = errors.New("invalid argument")

const (
	clockLayout = "15:04"
	// Accepts both "09:00 AM" and "9:00 AM".
	slotParseLayout = "3:04 PM"
)

// GenerateSlots lists the start of every slot of durationMinutes that fits
// between start and end ("HH:mm", 24-hour), formatted as "hh:mm a".
// A start at or after end yields no slots.
func GenerateSlots(start, end string, durationMinutes int) ([]string, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidArgument, durationMinutes)
	}
	startAt, err := ParseClock(start)
	if err != nil {
		return nil, err
	}
	endAt, err := ParseClock(end)
	if err != nil {
		return nil, err
	}

	step := time.Duration(durationMinutes) * time.Minute
	slots := []string{}
	for current := startAt; current.Before(endAt) && !current.Add(step).After(endAt); current = current.Add(step) {
		slots = append(slots, current.Format(models.DisplayTimeLayout))
	}
	return slots, nil
}

// ParseClock parses a 24-hour "HH:mm" value on the zero reference date.
func ParseClock(value string) (time.Time, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q is not HH:mm", ErrInvalidArgument, value)
	}
	return t, nil
}

// slotMinutes converts an "hh:mm a" slot into minutes since midnight.
func slotMinutes(slot string) (int, bool) {
	t, err := time.Parse(slotParseLayout, strings.ToUpper(strings.TrimSpace(slot)))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// DayName returns the lowercase weekday name used as a WeeklySchedule key.
func DayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// IsDayAvailable reports whether the doctor accepts bookings on day.
// A nil schedule or an absent day counts as available.
func IsDayAvailable(schedule models.WeeklySchedule, day string) bool {
	if schedule == nil {
		return true
	}
	ds, ok := schedule[strings.ToLower(day)]
	if !ok {
		return true
	}
	return ds.Available
}

// ValidateSchedule checks that every key is a weekday and that open days have
// parseable hours with start before end.
func ValidateSchedule(schedule models.WeeklySchedule) error {
	for day, ds := range schedule {
		if !isWeekday(day) {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidArgument, day)
		}
		if !ds.Available {
			continue
		}
		start, err := ParseClock(ds.StartTime)
		if err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
		end, err := ParseClock(ds.EndTime)
		if err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
		if !start.Before(end) {
			return fmt.Errorf("%w: %s starts at %s but ends at %s", ErrInvalidArgument, day, ds.StartTime, ds.EndTime)
		}
	}
	return nil
}

func isWeekday(day string) bool {
	for _, d := range models.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// ForDate computes the buckets for one calendar date. When date falls on the
// same day as now, slots that have already started are left out.
func ForDate(schedule models.WeeklySchedule, date time.Time, durationMinutes int, booked BookedSet, now time.Time) (Buckets, error) {
	day := DayName(date)
	if !IsDayAvailable(schedule, day) {
		return PartitionAndMarkBooked(nil, booked), nil
	}
	ds, ok := schedule[day]
	if !ok {
		ds = models.DefaultDaySchedule
	}

	slots, err := GenerateSlots(ds.StartTime, ds.EndTime, durationMinutes)
	if err != nil {
		return Buckets{}, err
	}

	if sameDay(date, now) {
		nowMinutes := now.Hour()*60 + now.Minute()
		upcoming := slots[:0]
		for _, s := range slots {
			if m, ok := slotMinutes(s); ok && m > nowMinutes {
				upcoming = append(upcoming, s)
			}
		}
		slots = upcoming
	}
	return PartitionAndMarkBooked(slots, booked), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
