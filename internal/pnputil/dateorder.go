package pnputil

import (
	"strconv"
	"strings"
	"time"
)

// DateOrder is the field order of the host's short date format, which
// pnputil uses when printing driver dates.
type DateOrder int

const (
	// DateOrderUnknown accepts only slash or dash dates whose order can be
	// inferred from the values themselves.
	DateOrderUnknown DateOrder = iota
	MonthFirst
	DayFirst
	YearFirst
)

func (o DateOrder) String() string {
	switch o {
	case MonthFirst:
		return "MDY"
	case DayFirst:
		return "DMY"
	case YearFirst:
		return "YMD"
	default:
		return "unknown"
	}
}

// DateOrderFromPattern reads the order of a Windows short date pattern such
// as "M/d/yyyy" or "dd.MM.yyyy". Quoted literals are ignored.
func DateOrderFromPattern(pattern string) DateOrder {
	quoted := false
	for _, c := range pattern {
		if c == '\'' {
			quoted = !quoted
			continue
		}
		if quoted {
			continue
		}
		switch c {
		case 'M':
			return MonthFirst
		case 'd':
			return DayFirst
		case 'y':
			return YearFirst
		}
	}
	return DateOrderUnknown
}

// parseDate reads a numeric date with "/", "." or "-" separators. A date
// whose day and month cannot be told apart stays zero rather than guessed.
func parseDate(s string, order DateOrder) time.Time {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, "/.-")
	if i < 0 {
		return time.Time{}
	}
	sep := s[i]
	parts := strings.Split(s, string(sep))
	if len(parts) != 3 {
		return time.Time{}
	}
	var n [3]int
	for k, p := range parts {
		v, ok := number(p)
		if !ok {
			return time.Time{}
		}
		n[k] = v
	}

	switch {
	case len(parts[0]) == 4:
		return calendarDate(n[0], n[1], n[2])
	case len(parts[2]) == 4:
		month, day, ok := monthDay(n[0], n[1], sep, order)
		if !ok {
			return time.Time{}
		}
		return calendarDate(n[2], month, day)
	}
	return time.Time{}
}

func monthDay(a, b int, sep byte, order DateOrder) (month, day int, ok bool) {
	switch order {
	case MonthFirst:
		return a, b, true
	case DayFirst:
		return b, a, true
	}
	// Dotted dates are day-first (de-DE, ru-RU, ...).
	if sep == '.' {
		return b, a, true
	}
	switch {
	case a == b:
		return a, b, true
	case a > 12 && b <= 12:
		return b, a, true
	case b > 12 && a <= 12:
		return a, b, true
	}
	return 0, 0, false
}

func number(s string) (int, bool) {
	if s == "" || len(s) > 4 {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

// calendarDate rejects out-of-range fields instead of letting time.Date
// normalize them into a different day.
func calendarDate(year, month, day int) time.Time {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return time.Time{}
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}
	}
	return t
}
