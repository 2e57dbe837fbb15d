package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid date expression")

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ResolveDate converts a relative or partial date expression to an absolute
// timestamp at local midnight. Recognized grammars, in priority order:
// today/tomorrow/yesterday, next-<weekday>, this-<weekday>, bare weekday,
// YYYY-MM-DD, MM-DD and DD (both rolling forward to the nearest future
// occurrence).
func ResolveDate(expr string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(expr))

	switch s {
	case "today":
		return StartOfDay(now), nil
	case "tomorrow":
		return StartOfDay(now.AddDate(0, 0, 1)), nil
	case "yesterday":
		return StartOfDay(now.AddDate(0, 0, -1)), nil
	}

	if selector, rest, ok := strings.Cut(s, "-"); ok {
		if wd, known := weekdayNames[rest]; known && (selector == "next" || selector == "this") {
			return weekdayDate(wd, selector, now), nil
		}
	}
	if wd, known := weekdayNames[s]; known {
		return weekdayDate(wd, "this", now), nil
	}

	if d, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return d, nil
	}

	// MM-DD resolves to the nearest future occurrence.
	if d, err := time.ParseInLocation("01-02", s, now.Location()); err == nil {
		candidate := time.Date(now.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
		if candidate.Before(StartOfDay(now)) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return candidate, nil
	}

	// Bare day of month, same forward-rolling policy. Months lacking the
	// requested day are skipped.
	if day, err := strconv.Atoi(s); err == nil && day >= 1 && day <= 31 {
		for i := 0; i <= 12; i++ {
			candidate := time.Date(now.Year(), now.Month()+time.Month(i), day, 0, 0, 0, 0, now.Location())
			if candidate.Day() == day && !candidate.Before(StartOfDay(now)) {
				return candidate, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, expr)
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, expr)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func weekdayDate(target time.Weekday, selector string, now time.Time) time.Time {
	// Monday-based offsets, matching how humans read "this week".
	diff := mondayBased(target) - mondayBased(now.Weekday())
	if selector == "next" {
		diff += 7
	} else if diff < 0 {
		diff += 7
	}
	return StartOfDay(now.AddDate(0, 0, diff))
}

func mondayBased(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
