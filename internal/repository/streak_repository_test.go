package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

func TestStreakRepositoryGet(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	last := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, current_streak, last_checked_date, total_days_marked, longest_streak, created_at, updated_at FROM attendance_streaks WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "current_streak", "last_checked_date", "total_days_marked", "longest_streak", "created_at", "updated_at"}).
			AddRow("user-1", 2, last, 5, 3, now, now))

	streak, err := repo.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, streak)
	assert.Equal(t, 2, streak.CurrentStreak)
	assert.Equal(t, 3, streak.LongestStreak)
	require.NotNil(t, streak.LastCheckedDate)
	assert.True(t, last.Equal(*streak.LastCheckedDate))
}

func TestStreakRepositoryPut(t *testing.T) {
	db, mock, cleanup := newAttendanceRepoMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_streaks")).
		WithArgs("user-1", 1, nil, 1, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	streak := &models.AttendanceStreak{UserID: "user-1", CurrentStreak: 1, TotalDaysMarked: 1, LongestStreak: 1}
	require.NoError(t, repo.Put(context.Background(), streak))
	assert.False(t, streak.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
