package service

import (
	"time"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
)

// RecomputeSubjectStats rebuilds the per-class aggregate from the complete set
// of raw records for its key. It never patches counters incrementally: the
// result depends only on records, so the cache cannot drift from raw data.
// existing supplies identity and metadata when the row already exists; slot
// supplies subject and instructor when it is being created.
func RecomputeSubjectStats(existing *models.SubjectAttendanceStats, key models.AttendanceKey, records []models.AttendanceRecord, slot *models.ClassSlot, now time.Time) *models.SubjectAttendanceStats {
	var stats models.SubjectAttendanceStats
	if existing != nil {
		stats = *existing
	} else {
		stats = models.SubjectAttendanceStats{
			UserID:      key.UserID,
			ClassroomID: key.ClassroomID,
			ClassID:     key.ClassID,
			CreatedAt:   now,
		}
		if slot != nil {
			stats.Subject = slot.Subject
			stats.Instructor = slot.Instructor
		}
	}

	stats.TotalClasses = 0
	stats.AttendedClasses = 0
	stats.LastMarkedDate = nil
	stats.LastMarkedStatus = nil

	var last *models.AttendanceRecord
	for i := range records {
		rec := &records[i]
		if rec.Key() != key {
			continue
		}
		stats.TotalClasses++
		if rec.Status == models.AttendanceStatusPresent {
			stats.AttendedClasses++
		}
		if last == nil || rec.Date.After(last.Date) || (rec.Date.Equal(last.Date) && rec.UpdatedAt.After(last.UpdatedAt)) {
			last = rec
		}
	}
	stats.AbsentClasses = stats.TotalClasses - stats.AttendedClasses
	stats.AttendancePercentage = 0
	if stats.TotalClasses > 0 {
		stats.AttendancePercentage = calendar.Round2(float64(stats.AttendedClasses) / float64(stats.TotalClasses) * 100)
	}
	if last != nil {
		date := last.Date
		status := last.Status
		stats.LastMarkedDate = &date
		stats.LastMarkedStatus = &status
	}
	stats.UpdatedAt = now
	return &stats
}
