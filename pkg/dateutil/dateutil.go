// Package dateutil holds the calendar-date helpers shared by the store, the
// view derivation, and the calendar bridge. All comparisons are by calendar
// date only; time of day never matters.
package dateutil

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

var shortMonths = [...]string{
	"янв", "фев", "мар", "апр", "мая", "июн",
	"июл", "авг", "сен", "окт", "ноя", "дек",
}

var longMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// Today returns the current calendar date in local time.
func Today() civil.Date {
	return civil.DateOf(time.Now())
}

// IsOverdue reports whether d is strictly before today. A deadline equal to
// today's date is never overdue, regardless of the current time of day.
// A nil deadline is never overdue.
func IsOverdue(d *civil.Date, today civil.Date) bool {
	if d == nil {
		return false
	}
	return d.Before(today)
}

// Parse parses a YYYY-MM-DD string into a date.
func Parse(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// Format renders a date for compact display, e.g. "22 фев".
func Format(d civil.Date) string {
	return fmt.Sprintf("%d %s", d.Day, shortMonths[d.Month-1])
}

// FormatLong renders a date for archive group headers, e.g. "20 февраля",
// with "Сегодня"/"Вчера" for the two most recent days.
func FormatLong(d, today civil.Date) string {
	switch {
	case d == today:
		return "Сегодня"
	case d == today.AddDays(-1):
		return "Вчера"
	default:
		return fmt.Sprintf("%d %s", d.Day, longMonths[d.Month-1])
	}
}
