package util

import "time"

// PeriodStart returns the first day of the month containing t, as a UTC date.
// The year and month are taken in t's own location.
func PeriodStart(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// NextPeriod returns the first day of the month after the given period
func NextPeriod(period time.Time) time.Time {
	return PeriodStart(period).AddDate(0, 1, 0)
}

// SamePeriod reports whether two dates fall in the same calendar month
func SamePeriod(a, b time.Time) bool {
	return PeriodStart(a).Equal(PeriodStart(b))
}

// CurrentPeriod returns the period containing now in the given location
func CurrentPeriod(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return PeriodStart(now.In(loc))
}
