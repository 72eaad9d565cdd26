package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
)

func newTestProjector() *Projector {
	return NewProjector(calendar.New(calendar.DefaultHolidays(), zap.NewNop()))
}

func aprilWindow(registration string) dto.SemesterWindow {
	window := dto.SemesterWindow{
		StartDate:        calendar.MustParse("2025-04-01"),
		EndDate:          calendar.MustParse("2025-04-30"),
		TargetPercentage: 75,
	}
	if registration != "" {
		registered := calendar.MustParse(registration)
		window.RegistrationDate = &registered
	}
	return window
}

func TestProjectBasic(t *testing.T) {
	p := Project(28, 40, 100, 75)

	assert.Equal(t, dto.ProjectionModeBasic, p.Mode)
	assert.Equal(t, 70.0, p.CurrentPercentage)
	assert.Equal(t, 75, p.TargetDaysForSemester)
	assert.Equal(t, 47, p.RequiredDays)
	assert.Equal(t, 60, p.RemainingWorkingDays)
	assert.Equal(t, 13, p.CanSkipDays)
	assert.False(t, p.IsOnTrack)
	assert.Equal(t, 70.0, p.ProjectedFinalPercentage)
	assert.Nil(t, p.PreRegistration)
}

func TestProjectDegenerateInputs(t *testing.T) {
	p := Project(0, 0, 0, 75)
	assert.Equal(t, dto.Projection{Mode: dto.ProjectionModeBasic}, p)

	p = Project(10, 0, 50, 75)
	assert.Equal(t, 0.0, p.CurrentPercentage)
	assert.Equal(t, 20.0, p.ProjectedFinalPercentage)

	p = Project(90, 100, 100, 75)
	assert.Equal(t, 0, p.RequiredDays, "required days never negative")
	assert.Equal(t, 0, p.CanSkipDays)
	assert.True(t, p.IsOnTrack)

	p = Project(10, 120, 100, 75)
	assert.Equal(t, 0, p.RemainingWorkingDays)
}

func TestTargetDaysCeiling(t *testing.T) {
	assert.Equal(t, 75, targetDays(75, 100))
	assert.Equal(t, 19, targetDays(75, 25))
	assert.Equal(t, 25, targetDays(100, 25))
	assert.Equal(t, 0, targetDays(0, 25))
	assert.Equal(t, 70, targetDays(70, 100))
	assert.Equal(t, 1, targetDays(33.33, 3))
}

func TestProjectCanSkipMonotonicInAbsences(t *testing.T) {
	const elapsed, total = 40, 100
	previous := Project(elapsed, elapsed, total, 75).CanSkipDays
	for absent := 1; absent <= elapsed; absent++ {
		current := Project(elapsed-absent, elapsed, total, 75).CanSkipDays
		require.LessOrEqual(t, current, previous, "absent=%d", absent)
		previous = current
	}
}

func TestProjectWindowWithoutRegistration(t *testing.T) {
	p := newTestProjector().ProjectWithPreRegistration(aprilWindow(""), 5, calendar.MustParse("2025-04-07"))

	assert.Equal(t, dto.ProjectionModeBasic, p.Mode)
	assert.Equal(t, 83.33, p.CurrentPercentage)
	assert.Equal(t, 19, p.RemainingWorkingDays)
	assert.Equal(t, 19, p.TargetDaysForSemester)
	assert.Equal(t, 14, p.RequiredDays)
	assert.Equal(t, 5, p.CanSkipDays)
	assert.True(t, p.IsOnTrack)
	assert.Equal(t, 83.33, p.ProjectedFinalPercentage)
}

func TestProjectWithPreRegistration(t *testing.T) {
	p := newTestProjector().ProjectWithPreRegistration(aprilWindow("2025-04-08"), 5, calendar.MustParse("2025-04-15"))

	require.NotNil(t, p.PreRegistration)
	assert.Equal(t, dto.ProjectionModePreRegistration, p.Mode)
	assert.Equal(t, 7, p.PreRegistration.PreRegistrationDays)
	assert.Equal(t, 7, p.PreRegistration.PostRegistrationDays)
	assert.Equal(t, 5, p.PreRegistration.AssumedPreRegistrationAttendance)
	assert.Equal(t, 10, p.PreRegistration.TotalAttendedDays)
	assert.Equal(t, 71.43, p.PreRegistration.ActualPostRegistrationPerformance)

	assert.Equal(t, 71.43, p.CurrentPercentage)
	assert.Equal(t, 13, p.RemainingWorkingDays)
	assert.Equal(t, 19, p.TargetDaysForSemester)
	assert.Equal(t, 9, p.RequiredDays)
	assert.Equal(t, 4, p.CanSkipDays)
	assert.False(t, p.IsOnTrack)
	assert.Equal(t, 77.14, p.ProjectedFinalPercentage)
}

func TestProjectWithPreRegistrationClampsEarlyRegistration(t *testing.T) {
	p := newTestProjector().ProjectWithPreRegistration(aprilWindow("2025-03-01"), 5, calendar.MustParse("2025-04-07"))

	require.NotNil(t, p.PreRegistration)
	assert.Equal(t, 1, p.PreRegistration.PreRegistrationDays)
	assert.Equal(t, 6, p.PreRegistration.PostRegistrationDays)
	assert.Equal(t, 1, p.PreRegistration.AssumedPreRegistrationAttendance)
}

func TestProjectWithPreRegistrationBeforeRegistrationDay(t *testing.T) {
	p := newTestProjector().ProjectWithPreRegistration(aprilWindow("2025-04-21"), 0, calendar.MustParse("2025-04-15"))

	require.NotNil(t, p.PreRegistration)
	assert.Equal(t, 0, p.PreRegistration.PostRegistrationDays)
	assert.Equal(t, 0.0, p.PreRegistration.ActualPostRegistrationPerformance)
}

func TestProjectWithPreRegistrationSemesterEnded(t *testing.T) {
	p := newTestProjector().ProjectWithPreRegistration(aprilWindow("2025-05-01"), 12, calendar.MustParse("2025-04-15"))

	assert.Equal(t, dto.Projection{Mode: dto.ProjectionModeSemesterEnded, IsOnTrack: true}, p)
}

func TestProjectBeforeSemesterStart(t *testing.T) {
	projector := newTestProjector()
	today := calendar.MustParse("2025-03-20")

	for _, registration := range []string{"", "2025-04-08"} {
		p := projector.ProjectWithPreRegistration(aprilWindow(registration), 0, today)
		assert.Equal(t, dto.ProjectionModeNotStarted, p.Mode)
		assert.Equal(t, 19, p.RequiredDays)
		assert.Equal(t, 6, p.CanSkipDays)
		assert.Equal(t, 25, p.RemainingWorkingDays)
		assert.True(t, p.IsOnTrack)
	}
}
