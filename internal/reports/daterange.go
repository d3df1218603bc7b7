package reports

import (
	"fmt"
	"time"
)

// rfc3339Milli renders range bounds with millisecond precision.
const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// dateOnly accepts plain calendar dates in report parameters.
const dateOnly = "2006-01-02"

// Range is a concrete UTC date range with Start <= End. Computed fresh per
// request, never cached.
type Range struct {
	Start time.Time
	End   time.Time
}

// resolveRange converts a symbolic period or explicit bounds into a
// concrete UTC range.
//
// "last_week" (or both bounds absent) resolves to the ISO calendar week
// immediately preceding the current one: Monday 00:00:00.000 UTC through
// Sunday 23:59:59.999 UTC. This anchoring is a contract; tests pin it on
// fixed reference dates.
//
// A one-sided bound keeps its natural default: an absent from falls back
// to the previous week's Monday, an absent to runs through the end of the
// current UTC day. A parse failure is attributed to the bound that was
// actually supplied, and a range that ends before it starts is rejected.
func resolveRange(now time.Time, period, from, to string) (Range, error) {
	week := previousISOWeek(now)
	if period == "last_week" || (from == "" && to == "") {
		return week, nil
	}

	rng := Range{Start: week.Start, End: endOfDay(now)}
	if from != "" {
		start, err := parseBound(from, false)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidFromDate, from)
		}
		rng.Start = start
	}
	if to != "" {
		end, err := parseBound(to, true)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidToDate, to)
		}
		rng.End = end
	}
	if rng.End.Before(rng.Start) {
		return Range{}, fmt.Errorf("%w: %q precedes the start of the range", ErrInvalidToDate, to)
	}
	return rng, nil
}

// endOfDay returns the last representable millisecond of now's UTC day.
func endOfDay(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// previousISOWeek computes the Monday-to-Sunday week before the one
// containing now, anchored on the UTC calendar date.
func previousISOWeek(now time.Time) Range {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// time.Weekday counts from Sunday; shift so Monday is day zero
	daysSinceMonday := (int(today.Weekday()) + 6) % 7
	currentMonday := today.AddDate(0, 0, -daysSinceMonday)

	start := currentMonday.AddDate(0, 0, -7)
	end := currentMonday.Add(-time.Millisecond)
	return Range{Start: start, End: end}
}

// parseBound parses an explicit bound as a calendar date or RFC 3339
// instant. Date-only bounds snap to the start of day, or the end of day
// for the upper bound.
func parseBound(value string, upper bool) (time.Time, error) {
	if t, err := time.Parse(dateOnly, value); err == nil {
		if upper {
			return t.AddDate(0, 0, 1).Add(-time.Millisecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
