package calendar

import "time"

func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Classify reports whether date is a weekend or a holiday at location.
//
// When more than one holiday matches, the most specific wins: a holiday scoped
// to the location beats a shared one, an exact date beats a recurring one,
// then the earliest created record wins.
func Classify(date time.Time, location Location, holidays []PublicHoliday) Classification {
	out := Classification{IsWeekend: IsWeekend(date)}
	if best, ok := Match(date, location, holidays); ok {
		name := best.Name
		out.IsHoliday = true
		out.HolidayName = &name
	}
	return out
}

// Match returns the holiday that applies to date at location, if any.
func Match(date time.Time, location Location, holidays []PublicHoliday) (PublicHoliday, bool) {
	var (
		best  PublicHoliday
		found bool
	)
	for _, h := range holidays {
		if !appliesTo(h, date, location) {
			continue
		}
		if !found || moreSpecific(h, best) {
			best = h
			found = true
		}
	}
	return best, found
}

func appliesTo(h PublicHoliday, date time.Time, location Location) bool {
	if h.Location != LocationBoth && h.Location != location {
		return false
	}
	hy, hm, hd := h.Date.Date()
	y, m, d := date.Date()
	if h.Recurring {
		return hm == m && hd == d
	}
	return hy == y && hm == m && hd == d
}

func moreSpecific(a, b PublicHoliday) bool {
	if sa, sb := a.Location != LocationBoth, b.Location != LocationBoth; sa != sb {
		return sa
	}
	if a.Recurring != b.Recurring {
		return !a.Recurring
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// WorkingDays counts the days in [from, to] that are neither weekends nor
// holidays at location.
func WorkingDays(from, to time.Time, location Location, holidays []PublicHoliday) int {
	from, to = DateOnly(from), DateOnly(to)
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWeekend(d) {
			continue
		}
		if _, ok := Match(d, location, holidays); ok {
			continue
		}
		count++
	}
	return count
}
