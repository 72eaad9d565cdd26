package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DefaultHolidayTable lists the built-in recurring holidays as MM-DD entries.
// Movable feasts (Holi, Good Friday, Eid, Diwali) are pinned to their 2025
// occurrence and drift in other years; configure dated YYYY-MM-DD entries to
// override them per year.
var DefaultHolidayTable = []string{
	"01-01", // New Year's Day
	"01-26", // Republic Day
	"03-14", // Holi
	"03-31", // Eid al-Fitr
	"04-18", // Good Friday
	"05-01", // Labour Day
	"08-15", // Independence Day
	"10-02", // Gandhi Jayanti
	"10-20", // Diwali
	"12-25", // Christmas
}

type monthDay struct {
	month time.Month
	day   int
}

// Holidays is a read-only lookup of recurring (month/day) and dated holidays.
// It is safe for concurrent use once built.
type Holidays struct {
	recurring map[monthDay]struct{}
	dated     map[Date]struct{}
}

// NewHolidays builds a table from MM-DD (recurring every year) and YYYY-MM-DD
// (single occurrence) entries.
func NewHolidays(entries []string) (*Holidays, error) {
	h := &Holidays{
		recurring: make(map[monthDay]struct{}),
		dated:     make(map[Date]struct{}),
	}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if t, err := time.Parse(isoLayout, entry); err == nil {
			h.dated[DateOf(t)] = struct{}{}
			continue
		}
		t, err := time.Parse("01-02", entry)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday entry %q: expected MM-DD or YYYY-MM-DD", entry)
		}
		h.recurring[monthDay{month: t.Month(), day: t.Day()}] = struct{}{}
	}
	return h, nil
}

// DefaultHolidays returns the built-in recurring table.
func DefaultHolidays() *Holidays {
	h, err := NewHolidays(DefaultHolidayTable)
	if err != nil {
		panic(err)
	}
	return h
}

// Contains reports whether d is a holiday.
func (h *Holidays) Contains(d Date) bool {
	if h == nil {
		return false
	}
	if _, ok := h.dated[d]; ok {
		return true
	}
	_, ok := h.recurring[monthDay{month: d.Month, day: d.Day}]
	return ok
}

// Len returns the number of configured entries.
func (h *Holidays) Len() int {
	if h == nil {
		return 0
	}
	return len(h.recurring) + len(h.dated)
}
