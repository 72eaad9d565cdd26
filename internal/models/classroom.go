package models

// Classroom is a group a user belongs to; classes are scheduled within it.
type Classroom struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ClassSlot is one weekly scheduled class in a classroom timetable.
type ClassSlot struct {
	ClassID     string `db:"class_id" json:"class_id"`
	ClassroomID string `db:"classroom_id" json:"classroom_id"`
	Subject     string `db:"subject" json:"subject"`
	Instructor  string `db:"instructor" json:"instructor"`
	DayOfWeek   int    `db:"day_of_week" json:"day_of_week"`
	StartTime   string `db:"start_time" json:"start_time"`
}
