package calendar

import (
	"time"

	"go.uber.org/zap"
)

// RestDay is the weekly non-working day.
const RestDay = time.Sunday

// Calendar decides which dates count toward attendance totals and counts them
// across semester windows.
type Calendar struct {
	holidays *Holidays
	logger   *zap.Logger
}

// New constructs a calendar. A nil holiday table falls back to the defaults.
func New(holidays *Holidays, logger *zap.Logger) *Calendar {
	if holidays == nil {
		holidays = DefaultHolidays()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calendar{holidays: holidays, logger: logger}
}

// IsWorkingDay reports whether d counts toward attendance totals.
func (c *Calendar) IsWorkingDay(d Date) bool {
	if d.Weekday() == RestDay {
		return false
	}
	return !c.holidays.Contains(d)
}

// CountWorkingDays counts working days in [start, end] inclusive. A reversed
// window yields 0 and is logged as an error.
func (c *Calendar) CountWorkingDays(start, end Date) int {
	if start.After(end) {
		c.logger.Error("working day window reversed",
			zap.Stringer("start", start),
			zap.Stringer("end", end),
		)
		return 0
	}
	if start == end {
		if c.IsWorkingDay(start) {
			return 1
		}
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		if c.IsWorkingDay(d) {
			count++
		}
	}
	return count
}

// ElapsedWorkingDays counts working days from semesterStart through today.
func (c *Calendar) ElapsedWorkingDays(semesterStart, today Date) int {
	if today.Before(semesterStart) {
		return 0
	}
	return c.CountWorkingDays(semesterStart, today)
}

// RemainingWorkingDays counts working days from today through semesterEnd.
func (c *Calendar) RemainingWorkingDays(semesterEnd, today Date) int {
	if today.After(semesterEnd) {
		return 0
	}
	return c.CountWorkingDays(today, semesterEnd)
}

// Progress summarises how far through a semester window today is.
type Progress struct {
	TotalWorkingDays     int     `json:"totalWorkingDays"`
	ElapsedWorkingDays   int     `json:"elapsedWorkingDays"`
	RemainingWorkingDays int     `json:"remainingWorkingDays"`
	ProgressPercentage   float64 `json:"progressPercentage"`
}

// SemesterProgress computes totals for [start, end] as seen from today.
func (c *Calendar) SemesterProgress(start, end, today Date) Progress {
	total := c.CountWorkingDays(start, end)
	until := today
	if until.After(end) {
		until = end
	}
	elapsed := c.ElapsedWorkingDays(start, until)
	if elapsed > total {
		elapsed = total
	}
	progress := Progress{
		TotalWorkingDays:     total,
		ElapsedWorkingDays:   elapsed,
		RemainingWorkingDays: c.RemainingWorkingDays(end, today),
	}
	if total > 0 {
		progress.ProgressPercentage = Round2(float64(elapsed) / float64(total) * 100)
	}
	return progress
}
