package util

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar date layout.
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "20060102", "2006/01/02"}

// Day returns the calendar date of t as UTC midnight. The date is taken in
// t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD, YYYYMMDD and YYYY/MM/DD.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", s)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// AddMonths shifts t by n calendar months, clamping the day to the last day
// of the target month (Mar 31 - 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYears shifts t by n calendar years with the same clamping as AddMonths.
func AddYears(t time.Time, n int) time.Time { return AddMonths(t, 12*n) }

// StartOfYear returns Jan 1 of t's year.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
