package calendar

import (
	"strconv"
	"strings"
	"time"
)

var extendedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	isoLayout,
}

// Parse normalises textual date input into a calendar date. Accepted forms, in
// priority order: an extended date-time string (anything containing '-' or 'T'),
// eight digits read as DDMMYYYY, and DD/MM/YYYY. It returns false on malformed
// or impossible input and never panics.
func Parse(text string) (Date, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Date{}, false
	}

	if strings.ContainsAny(text, "-T") {
		for _, layout := range extendedLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return DateOf(t), true
			}
		}
		return Date{}, false
	}

	if len(text) == 8 && isDigits(text) {
		return buildDate(text[4:8], text[2:4], text[0:2])
	}

	if parts := strings.Split(text, "/"); len(parts) == 3 {
		if len(parts[0]) > 2 || len(parts[1]) > 2 || len(parts[2]) != 4 {
			return Date{}, false
		}
		return buildDate(parts[2], parts[1], parts[0])
	}

	return Date{}, false
}

// MustParse is Parse for trusted literals; it panics on malformed input.
func MustParse(text string) Date {
	d, ok := Parse(text)
	if !ok {
		panic("calendar: invalid date " + strconv.Quote(text))
	}
	return d
}

func buildDate(yearStr, monthStr, dayStr string) (Date, bool) {
	if !isDigits(yearStr) || !isDigits(monthStr) || !isDigits(dayStr) {
		return Date{}, false
	}
	year, _ := strconv.Atoi(yearStr)
	month, _ := strconv.Atoi(monthStr)
	day, _ := strconv.Atoi(dayStr)
	if month < 1 || month > 12 || day < 1 {
		return Date{}, false
	}
	d := NewDate(year, time.Month(month), day)
	// time.Date normalises 31/02 into March; reject instead of rolling over.
	if d.Year != year || int(d.Month) != month || d.Day != day {
		return Date{}, false
	}
	return d, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
