package dto

import (
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
)

// ProjectionMode describes which branch of the projector produced a result.
type ProjectionMode string

const (
	ProjectionModeBasic           ProjectionMode = "basic"
	ProjectionModePreRegistration ProjectionMode = "pre_registration"
	ProjectionModeSemesterEnded   ProjectionMode = "semester_ended"
	ProjectionModeNotStarted      ProjectionMode = "not_started"
)

// Projection answers how many more days are needed and how many can be missed.
type Projection struct {
	Mode                     ProjectionMode         `json:"mode"`
	RequiredDays             int                    `json:"requiredDays"`
	CanSkipDays              int                    `json:"canSkipDays"`
	IsOnTrack                bool                   `json:"isOnTrack"`
	CurrentPercentage        float64                `json:"currentPercentage"`
	RemainingWorkingDays     int                    `json:"remainingWorkingDays"`
	TargetDaysForSemester    int                    `json:"targetDaysForSemester"`
	ProjectedFinalPercentage float64                `json:"projectedFinalPercentage"`
	PreRegistration          *PreRegistrationDetail `json:"preRegistration,omitempty"`
}

// PreRegistrationDetail exposes the blended assumption behind a projection.
type PreRegistrationDetail struct {
	PreRegistrationDays               int     `json:"preRegistrationDays"`
	PostRegistrationDays              int     `json:"postRegistrationDays"`
	AssumedPreRegistrationAttendance  int     `json:"assumedPreRegistrationAttendance"`
	ActualAttendedDays                int     `json:"actualAttendedDays"`
	TotalAttendedDays                 int     `json:"totalAttendedDays"`
	ActualPostRegistrationPerformance float64 `json:"actualPostRegistrationPerformance"`
}

// SemesterWindow is the caller-supplied semester definition.
type SemesterWindow struct {
	StartDate        calendar.Date  `json:"startDate"`
	EndDate          calendar.Date  `json:"endDate"`
	RegistrationDate *calendar.Date `json:"registrationDate,omitempty"`
	TargetPercentage float64        `json:"targetPercentage"`
}

// ProjectionRequest carries raw dashboard query parameters.
type ProjectionRequest struct {
	SemesterStart    string   `json:"semesterStart"`
	SemesterEnd      string   `json:"semesterEnd"`
	RegistrationDate string   `json:"registrationDate"`
	TargetPercentage *float64 `json:"targetPercentage"`
	AttendedDays     *int     `json:"attendedDays"`
}

// DashboardProjectionResponse is the attendance dashboard payload.
type DashboardProjectionResponse struct {
	SetupRequired bool                            `json:"setupRequired"`
	Today         calendar.Date                   `json:"today"`
	Window        *SemesterWindow                 `json:"window,omitempty"`
	AttendedDays  int                             `json:"attendedDays"`
	Progress      calendar.Progress               `json:"progress"`
	Projection    Projection                      `json:"projection"`
	Classes       []models.SubjectAttendanceStats `json:"classes"`
}

// WorkingDaysResponse is returned by the calendar working-day counter.
type WorkingDaysResponse struct {
	Start       calendar.Date `json:"start"`
	End         calendar.Date `json:"end"`
	WorkingDays int           `json:"workingDays"`
}

// SemesterProgressResponse wraps calendar progress for a window.
type SemesterProgressResponse struct {
	Start    calendar.Date     `json:"start"`
	End      calendar.Date     `json:"end"`
	Today    calendar.Date     `json:"today"`
	Progress calendar.Progress `json:"progress"`
}
