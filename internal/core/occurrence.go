package core

import "time"

// NextOccurrence returns the occurrence that follows base for the given
// frequency. Monthly and yearly steps clamp to the last day of the target
// month, so Jan 31 + 1 month lands on the last day of February and Feb 29 + 1
// year lands on Feb 28 in non-leap years.
//
// ok is false when the frequency does not recur; callers must treat that as
// terminal for the definition, never as a retryable error.
func NextOccurrence(frequency Frequency, base time.Time) (next time.Time, ok bool) {
	switch frequency {
	case Minutely:
		return base.Add(time.Minute), true
	case Daily:
		return base.AddDate(0, 0, 1), true
	case Weekly:
		return base.AddDate(0, 0, 7), true
	case Monthly:
		return addMonthsClamped(base, 1), true
	case Yearly:
		return addMonthsClamped(base, 12), true
	default:
		return time.Time{}, false
	}
}

// MissedOccurrences expands the due occurrence dates of a definition, starting
// from next inclusive, while each date is on or before horizon and, when
// endDate is set, on or before endDate. The list is bounded by max; any
// remainder is left for a later run.
func MissedOccurrences(frequency Frequency, next, horizon time.Time, endDate *time.Time, max int) []time.Time {
	var dates []time.Time
	cur := next
	for len(dates) < max {
		if cur.After(horizon) {
			break
		}
		if endDate != nil && cur.After(*endDate) {
			break
		}
		dates = append(dates, cur)
		n, ok := NextOccurrence(frequency, cur)
		if !ok {
			break
		}
		cur = n
	}
	return dates
}

// addMonthsClamped steps by whole calendar months without the overflow
// behavior of time.AddDate (Jan 31 + 1 month must not become Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	anchor := time.Date(t.Year(), t.Month(), 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, months, 0)
	day := t.Day()
	if last := lastDayOfMonth(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(anchor.Year(), anchor.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay returns midnight of t's calendar day in UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last instant of t's calendar day in UTC.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// DayKey is the UTC calendar-day identity of an occurrence, used for the
// per-day idempotency contract.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
