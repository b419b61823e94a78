// Package recurrence computes occurrence dates for recurring tasks and
// materializes instance drafts from them. It performs no I/O; both the
// in-process scheduler and the HTTP handler depend on this one library so
// the two call paths cannot drift apart.
package recurrence

import (
	"time"

	"github.com/homedeskhq/homedesk/internal/models"
)

// NextDate returns the occurrence following current under the given
// pattern. ok is false when the recurrence has ended, i.e. the computed
// date falls strictly after the pattern's end date.
func NextDate(current time.Time, p models.RecurrencePattern) (time.Time, bool) {
	interval := p.Interval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch p.Type {
	case models.FrequencyDaily:
		next = current.AddDate(0, 0, interval)
	case models.FrequencyWeekly:
		next = nextWeekly(current, interval, p.DaysOfWeek)
	case models.FrequencyMonthly:
		next = nextMonthly(current, interval, p.DayOfMonth)
	case models.FrequencyYearly:
		next = nextYearly(current, interval, p.MonthOfYear)
	default:
		return time.Time{}, false
	}

	if p.EndDate != nil && next.After(*p.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

// nextWeekly scans forward day by day for the first allowed weekday. A
// candidate on the same weekday as current would collapse the interval to a
// single week, so those are skipped; a set that only repeats current's
// weekday falls through to plain interval arithmetic, as does an empty set.
func nextWeekly(current time.Time, interval int, daysOfWeek []int) time.Time {
	if len(daysOfWeek) > 0 {
		allowed := make(map[int]bool, len(daysOfWeek))
		for _, d := range daysOfWeek {
			allowed[d] = true
		}
		currentDay := int(current.Weekday())
		for i := 1; i <= 7*interval; i++ {
			candidate := current.AddDate(0, 0, i)
			if wd := int(candidate.Weekday()); allowed[wd] && wd != currentDay {
				return candidate
			}
		}
	}
	return current.AddDate(0, 0, 7*interval)
}

// nextMonthly advances the month component. With dayOfMonth set the day is
// clamped to the target month's length, so day 31 lands on Feb 28/29 instead
// of overflowing into March. Without it, AddDate semantics apply and short
// months may roll over.
func nextMonthly(current time.Time, interval int, dayOfMonth *int) time.Time {
	if dayOfMonth == nil {
		return current.AddDate(0, interval, 0)
	}

	y, m, _ := current.Date()
	hh, mm, ss := current.Clock()
	first := time.Date(y, m+time.Month(interval), 1, hh, mm, ss, current.Nanosecond(), current.Location())

	day := *dayOfMonth
	if last := lastDayOfMonth(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hh, mm, ss, current.Nanosecond(), current.Location())
}

// nextYearly advances the year, optionally overwriting the month component.
// The day of month is preserved from current.
func nextYearly(current time.Time, interval int, monthOfYear *int) time.Time {
	next := current.AddDate(interval, 0, 0)
	if monthOfYear != nil {
		y, _, d := next.Date()
		hh, mm, ss := next.Clock()
		next = time.Date(y, time.Month(*monthOfYear), d, hh, mm, ss, next.Nanosecond(), next.Location())
	}
	return next
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
