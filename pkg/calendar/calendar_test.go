package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	return New(DefaultHolidays(), zap.NewNop())
}

func TestIsWorkingDay(t *testing.T) {
	cal := newTestCalendar(t)

	assert.True(t, cal.IsWorkingDay(MustParse("2025-04-01")), "tuesday")
	assert.False(t, cal.IsWorkingDay(MustParse("2025-04-06")), "sunday")
	assert.True(t, cal.IsWorkingDay(MustParse("2025-04-05")), "saturday is a working day")
	assert.False(t, cal.IsWorkingDay(MustParse("2025-08-15")), "recurring holiday")
	assert.False(t, cal.IsWorkingDay(MustParse("2031-12-25")), "recurring holidays repeat every year")
}

func TestIsWorkingDayWeeklyPeriodicity(t *testing.T) {
	cal := newTestCalendar(t)
	holidays := DefaultHolidays()

	for d := MustParse("2025-01-01"); d.Before(MustParse("2026-01-01")); d = d.AddDays(1) {
		next := d.AddDays(7)
		if holidays.Contains(d) || holidays.Contains(next) {
			continue
		}
		assert.Equal(t, cal.IsWorkingDay(d), cal.IsWorkingDay(next), "date %s", d)
	}
}

func TestDatedHolidaysApplyToOneYear(t *testing.T) {
	holidays, err := NewHolidays([]string{"2026-03-04", "12-25"})
	require.NoError(t, err)
	cal := New(holidays, zap.NewNop())

	assert.False(t, cal.IsWorkingDay(MustParse("2026-03-04")))
	assert.True(t, cal.IsWorkingDay(MustParse("2027-03-04")))
	assert.False(t, cal.IsWorkingDay(MustParse("2027-12-25")))
	assert.Equal(t, 2, holidays.Len())
}

func TestNewHolidaysRejectsGarbage(t *testing.T) {
	_, err := NewHolidays([]string{"25/12"})
	assert.Error(t, err)
}

func TestCountWorkingDays(t *testing.T) {
	cal := newTestCalendar(t)

	t.Run("single working day", func(t *testing.T) {
		assert.Equal(t, 1, cal.CountWorkingDays(MustParse("01/04/2025"), MustParse("01/04/2025")))
	})

	t.Run("single sunday", func(t *testing.T) {
		assert.Equal(t, 0, cal.CountWorkingDays(MustParse("2025-04-06"), MustParse("2025-04-06")))
	})

	t.Run("full month skips sundays and holidays", func(t *testing.T) {
		// April 2025: 30 days, 4 Sundays, Good Friday on the 18th.
		assert.Equal(t, 25, cal.CountWorkingDays(MustParse("2025-04-01"), MustParse("2025-04-30")))
	})

	t.Run("reversed window", func(t *testing.T) {
		for _, pair := range [][2]string{
			{"2025-04-02", "2025-04-01"},
			{"2025-12-31", "2025-01-01"},
			{"2026-01-01", "2025-12-31"},
		} {
			assert.Equal(t, 0, cal.CountWorkingDays(MustParse(pair[0]), MustParse(pair[1])))
		}
	})
}

func TestElapsedAndRemaining(t *testing.T) {
	cal := newTestCalendar(t)
	start := MustParse("2025-04-01")
	end := MustParse("2025-04-30")

	assert.Equal(t, 0, cal.ElapsedWorkingDays(start, MustParse("2025-03-31")))
	assert.Equal(t, 6, cal.ElapsedWorkingDays(start, MustParse("2025-04-07")))
	assert.Equal(t, 20, cal.RemainingWorkingDays(end, MustParse("2025-04-07")))
	assert.Equal(t, 0, cal.RemainingWorkingDays(end, MustParse("2025-05-01")))
}

func TestSemesterProgress(t *testing.T) {
	cal := newTestCalendar(t)
	start := MustParse("2025-04-01")
	end := MustParse("2025-04-30")

	progress := cal.SemesterProgress(start, end, MustParse("2025-04-07"))
	assert.Equal(t, Progress{
		TotalWorkingDays:     25,
		ElapsedWorkingDays:   6,
		RemainingWorkingDays: 20,
		ProgressPercentage:   24,
	}, progress)

	after := cal.SemesterProgress(start, end, MustParse("2025-05-10"))
	assert.Equal(t, 25, after.ElapsedWorkingDays, "elapsed is clamped to the total")
	assert.Equal(t, 0, after.RemainingWorkingDays)
	assert.Equal(t, 100.0, after.ProgressPercentage)

	empty := cal.SemesterProgress(end, start, MustParse("2025-04-07"))
	assert.Equal(t, 0, empty.TotalWorkingDays)
	assert.Equal(t, 0.0, empty.ProgressPercentage)
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, NewDate(2024, time.February, 29), d.AddDays(1))
	assert.Equal(t, NewDate(2024, time.March, 1), d.AddDays(2))
	assert.Equal(t, 2, d.DaysUntil(d.AddDays(2)))
	assert.Equal(t, -1, d.DaysUntil(d.AddDays(-1)))
	assert.Equal(t, 3652058, NewDate(1, time.January, 1).DaysUntil(NewDate(9999, time.December, 31)))
	assert.Equal(t, "2024-02-28", d.String())
	assert.True(t, Date{}.IsZero())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3))
	assert.Equal(t, 70.0, Round2(70))
	assert.Equal(t, 0.13, Round2(0.125))
}
