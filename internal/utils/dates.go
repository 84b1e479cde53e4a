package utils

import "time"

// SameCalendarDay reports whether a and b fall on the same calendar day in
// b's location.  The PDU edit window compares the record's creation time
// against "now", so the caller passes now as b.
func SameCalendarDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// MonthBounds returns the first and last instant of t's calendar month in
// t's location.  The end bound is the final second of the last day so a
// BETWEEN query includes records created any time that day.
func MonthBounds(t time.Time) (start, end time.Time) {
	loc := t.Location()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// monthNames holds Indonesian month names; listing responses include the
// month name of the active filter.
var monthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthName returns the Indonesian name for a month.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}
