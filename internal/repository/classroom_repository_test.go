package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassroomRepositoryListUserClassrooms(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT c.id, c.name FROM classrooms c")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow("room-1", "CSE 3A").
			AddRow("room-2", "Electives"))

	rooms, err := repo.ListUserClassrooms(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "CSE 3A", rooms[0].Name)
}

func TestClassroomRepositoryClassSchedule(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules")).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id", "classroom_id", "subject", "instructor", "day_of_week", "start_time"}).
			AddRow("class-1", "room-1", "Physics", "Dr. Rao", 2, "09:00"))

	slots, err := repo.ClassSchedule(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 2, slots[0].DayOfWeek)
	assert.Equal(t, "Dr. Rao", slots[0].Instructor)
}

func TestClassroomRepositoryClassScheduleError(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewClassroomRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules")).
		WithArgs("room-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ClassSchedule(context.Background(), "room-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class schedule")
}
