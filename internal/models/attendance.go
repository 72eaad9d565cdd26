package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is the raw mark for one user, class and calendar date.
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"user_id"`
	ClassroomID string           `db:"classroom_id" json:"classroom_id"`
	ClassID     string           `db:"class_id" json:"class_id"`
	Date        time.Time        `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	Reason      *string          `db:"reason" json:"reason,omitempty"`
	MarkedAt    time.Time        `db:"marked_at" json:"marked_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceKey identifies the per-class aggregate a record belongs to.
type AttendanceKey struct {
	UserID      string
	ClassroomID string
	ClassID     string
}

// Key returns the aggregate key of the record.
func (r AttendanceRecord) Key() AttendanceKey {
	return AttendanceKey{UserID: r.UserID, ClassroomID: r.ClassroomID, ClassID: r.ClassID}
}

// AttendanceStreak tracks consecutive days on which a user marked present.
type AttendanceStreak struct {
	UserID          string     `db:"user_id" json:"user_id"`
	CurrentStreak   int        `db:"current_streak" json:"current_streak"`
	LastCheckedDate *time.Time `db:"last_checked_date" json:"last_checked_date,omitempty"`
	TotalDaysMarked int        `db:"total_days_marked" json:"total_days_marked"`
	LongestStreak   int        `db:"longest_streak" json:"longest_streak"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// SubjectAttendanceStats is the denormalised per-class aggregate rebuilt from
// raw records on every write.
type SubjectAttendanceStats struct {
	ID                   string            `db:"id" json:"id"`
	UserID               string            `db:"user_id" json:"user_id"`
	ClassroomID          string            `db:"classroom_id" json:"classroom_id"`
	ClassID              string            `db:"class_id" json:"class_id"`
	Subject              string            `db:"subject" json:"subject"`
	Instructor           string            `db:"instructor" json:"instructor"`
	TotalClasses         int               `db:"total_classes" json:"total_classes"`
	AttendedClasses      int               `db:"attended_classes" json:"attended_classes"`
	AbsentClasses        int               `db:"absent_classes" json:"absent_classes"`
	AttendancePercentage float64           `db:"attendance_percentage" json:"attendance_percentage"`
	LastMarkedDate       *time.Time        `db:"last_marked_date" json:"last_marked_date,omitempty"`
	LastMarkedStatus     *AttendanceStatus `db:"last_marked_status" json:"last_marked_status,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

// Key returns the aggregate key of the stats row.
func (s SubjectAttendanceStats) Key() AttendanceKey {
	return AttendanceKey{UserID: s.UserID, ClassroomID: s.ClassroomID, ClassID: s.ClassID}
}
