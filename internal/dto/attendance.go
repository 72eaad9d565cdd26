package dto

import (
	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

// MarkAttendanceRequest is the payload for marking a class that occurred on a day.
type MarkAttendanceRequest struct {
	ClassroomID string  `json:"classroom_id" validate:"required"`
	ClassID     string  `json:"class_id" validate:"required"`
	Date        string  `json:"date"`
	Status      string  `json:"status" validate:"required,attendance_status"`
	Reason      *string `json:"reason" validate:"omitempty,max=500"`
}

// CorrectAttendanceRequest changes the status of an existing record.
type CorrectAttendanceRequest struct {
	ClassroomID string  `json:"classroom_id" validate:"required"`
	ClassID     string  `json:"class_id" validate:"required"`
	Date        string  `json:"date" validate:"required"`
	Status      string  `json:"status" validate:"required,attendance_status"`
	Reason      *string `json:"reason" validate:"omitempty,max=500"`
}

// BackfillRequest asks for unmarked slots on a date to be recorded as absent.
type BackfillRequest struct {
	Date string `json:"date"`
}

// MarkAttendanceResponse returns the stored record with the refreshed aggregates.
type MarkAttendanceResponse struct {
	Record         *models.AttendanceRecord       `json:"record"`
	Stats          *models.SubjectAttendanceStats `json:"stats"`
	Streak         *models.AttendanceStreak       `json:"streak,omitempty"`
	StreakAdvanced bool                           `json:"streakAdvanced"`
}

// BackfillResult summarises a backfill run.
type BackfillResult struct {
	Date    string   `json:"date"`
	Skipped bool     `json:"skipped"`
	Marked  []string `json:"marked"`
}

// StatsExportFormat selects the renderer for stats exports.
type StatsExportFormat string

const (
	StatsExportCSV StatsExportFormat = "csv"
	StatsExportPDF StatsExportFormat = "pdf"
)

// StatsExport is a rendered stats document.
type StatsExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// BackfillJob is the queued payload of a backfill run.
type BackfillJob struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
}

// BackfillAccepted acknowledges a queued backfill.
type BackfillAccepted struct {
	JobID string `json:"jobId"`
	Date  string `json:"date"`
}
