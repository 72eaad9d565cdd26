package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

// ClassroomRepository reads classroom membership and timetables owned by the
// classroom module. It never writes.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListUserClassrooms returns the classrooms a user is a member of.
func (r *ClassroomRepository) ListUserClassrooms(ctx context.Context, userID string) ([]models.Classroom, error) {
	const query = `SELECT c.id, c.name FROM classrooms c
JOIN classroom_members m ON m.classroom_id = c.id
WHERE m.user_id = $1
ORDER BY c.name ASC`
	var rows []models.Classroom
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list user classrooms: %w", err)
	}
	return rows, nil
}

// ClassSchedule returns the weekly timetable for a classroom.
func (r *ClassroomRepository) ClassSchedule(ctx context.Context, classroomID string) ([]models.ClassSlot, error) {
	const query = `SELECT class_id, classroom_id, subject, instructor, day_of_week, start_time
FROM class_schedules
WHERE classroom_id = $1
ORDER BY day_of_week ASC, start_time ASC`
	var rows []models.ClassSlot
	if err := r.db.SelectContext(ctx, &rows, query, classroomID); err != nil {
		return nil, fmt.Errorf("class schedule: %w", err)
	}
	return rows, nil
}
