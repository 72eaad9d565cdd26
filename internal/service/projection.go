package service

import (
	"math"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
)

// DefaultTargetPercentage applies when the caller supplies no target.
const DefaultTargetPercentage = 75.0

// ceilEpsilon absorbs float error so that e.g. 75% of 100 days is 75, not 76.
const ceilEpsilon = 1e-9

// targetDays is the number of attended days needed to reach target over total.
func targetDays(target float64, total int) int {
	return int(math.Ceil(target/100*float64(total) - ceilEpsilon))
}

// Project runs the basic projection: attendance so far continues at the same
// rate for the rest of the window.
func Project(attended, elapsed, total int, target float64) dto.Projection {
	var current float64
	if elapsed > 0 {
		current = float64(attended) / float64(elapsed) * 100
	}
	remaining := total - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return finishProjection(dto.ProjectionModeBasic, attended, current, current, remaining, total, target)
}

// finishProjection derives the required/skip figures shared by both variants.
// currentRate is reported and compared with target; forwardRate extrapolates the remainder.
func finishProjection(mode dto.ProjectionMode, attended int, currentRate, forwardRate float64, remaining, total int, target float64) dto.Projection {
	goal := targetDays(target, total)
	required := goal - attended
	if required < 0 {
		required = 0
	}
	canSkip := remaining - required
	if canSkip < 0 {
		canSkip = 0
	}
	current := calendar.Round2(currentRate)

	var projected float64
	if total > 0 {
		projected = calendar.Round2((float64(attended) + float64(remaining)*forwardRate/100) / float64(total) * 100)
	}

	return dto.Projection{
		Mode:                     mode,
		RequiredDays:             required,
		CanSkipDays:              canSkip,
		IsOnTrack:                current >= target,
		CurrentPercentage:        current,
		RemainingWorkingDays:     remaining,
		TargetDaysForSemester:    goal,
		ProjectedFinalPercentage: projected,
	}
}

// Projector binds the projection math to a working-day calendar.
type Projector struct {
	calendar *calendar.Calendar
}

// NewProjector constructs a projector.
func NewProjector(cal *calendar.Calendar) *Projector {
	return &Projector{calendar: cal}
}

// ProjectWindow runs the basic projection for a semester window as seen from today.
func (p *Projector) ProjectWindow(window dto.SemesterWindow, attended int, today calendar.Date) dto.Projection {
	total := p.calendar.CountWorkingDays(window.StartDate, window.EndDate)
	if today.Before(window.StartDate) {
		return notStarted(total, window.TargetPercentage)
	}
	until := today
	if until.After(window.EndDate) {
		until = window.EndDate
	}
	elapsed := p.calendar.ElapsedWorkingDays(window.StartDate, until)
	if elapsed > total {
		elapsed = total
	}
	return Project(attended, elapsed, total, window.TargetPercentage)
}

// ProjectWithPreRegistration credits the days before registration at exactly
// the target rate and blends that with the observed attendance since. The
// forward projection only trusts the observed rate. A missing registration date
// falls back to ProjectWindow.
func (p *Projector) ProjectWithPreRegistration(window dto.SemesterWindow, actualAttended int, today calendar.Date) dto.Projection {
	if window.RegistrationDate == nil || window.RegistrationDate.IsZero() {
		return p.ProjectWindow(window, actualAttended, today)
	}
	target := window.TargetPercentage
	if window.RegistrationDate.After(window.EndDate) {
		return dto.Projection{Mode: dto.ProjectionModeSemesterEnded, IsOnTrack: true}
	}
	total := p.calendar.CountWorkingDays(window.StartDate, window.EndDate)
	if today.Before(window.StartDate) {
		return notStarted(total, target)
	}

	registration := *window.RegistrationDate
	if registration.Before(window.StartDate) {
		registration = window.StartDate
	}
	until := today
	if until.After(window.EndDate) {
		until = window.EndDate
	}

	// The registration day itself falls in both halves.
	pre := p.calendar.CountWorkingDays(window.StartDate, registration)
	post := 0
	if !until.Before(registration) {
		post = p.calendar.CountWorkingDays(registration, until)
	}

	assumed := int(math.Round(target / 100 * float64(pre)))
	var actualRate float64
	if post > 0 {
		actualRate = float64(actualAttended) / float64(post) * 100
	}
	composite := assumed + actualAttended
	var blendedRate float64
	if pre+post > 0 {
		blendedRate = float64(composite) / float64(pre+post) * 100
	}
	remaining := p.calendar.RemainingWorkingDays(window.EndDate, today)

	projection := finishProjection(dto.ProjectionModePreRegistration, composite, blendedRate, actualRate, remaining, total, target)
	projection.PreRegistration = &dto.PreRegistrationDetail{
		PreRegistrationDays:               pre,
		PostRegistrationDays:              post,
		AssumedPreRegistrationAttendance:  assumed,
		ActualAttendedDays:                actualAttended,
		TotalAttendedDays:                 composite,
		ActualPostRegistrationPerformance: calendar.Round2(actualRate),
	}
	return projection
}

func notStarted(total int, target float64) dto.Projection {
	goal := targetDays(target, total)
	return dto.Projection{
		Mode:                  dto.ProjectionModeNotStarted,
		RequiredDays:          goal,
		CanSkipDays:           total - goal,
		IsOnTrack:             true,
		RemainingWorkingDays:  total,
		TargetDaysForSemester: goal,
	}
}
