package core

import (
	"time"
)

// DisplayLayout is the day/month/year text used when presenting dates.
const DisplayLayout = "02/01/2006"

// Date is a calendar date that may be null. The zero value is the null date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
	Valid bool
}

// NewDate creates a valid Date from year, month, day.
func NewDate(year, month, day int) Date {
	return DateOf(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d, Valid: true}
}

// Time returns the date at midnight UTC. The null date maps to the zero time.
func (d Date) Time() time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1. Null dates sort before every valid date.
func (d Date) Compare(o Date) int {
	switch {
	case !d.Valid && !o.Valid:
		return 0
	case !d.Valid:
		return -1
	case !o.Valid:
		return 1
	}
	if d.Year != o.Year {
		return cmpInt(d.Year, o.Year)
	}
	if d.Month != o.Month {
		return cmpInt(int(d.Month), int(o.Month))
	}
	return cmpInt(d.Day, o.Day)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// Equal reports whether both dates are null or denote the same day.
func (d Date) Equal(o Date) bool { return d.Compare(o) == 0 }

// In reports whether d is valid and falls inside month m.
func (d Date) In(m Month) bool {
	return d.Valid && d.Year == m.Year && d.Month == m.Month
}

// Format renders the date as dd/mm/yyyy, or "" for the null date.
func (d Date) Format() string {
	if !d.Valid {
		return ""
	}
	return d.Time().Format(DisplayLayout)
}

func (d Date) String() string {
	if !d.Valid {
		return "<null>"
	}
	return d.Time().Format("2006-01-02")
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Month is a (year, month) reference pair.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf captures the calendar month of t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// NewMonth builds a Month, validating the month number.
func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

func (m Month) String() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
