package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

// StreakRepository reads and rewrites attendance streaks outside the mark pipeline.
type StreakRepository struct {
	db *sqlx.DB
}

// NewStreakRepository constructs the repository.
func NewStreakRepository(db *sqlx.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// Get returns the user's streak or nil when the user never marked present.
func (r *StreakRepository) Get(ctx context.Context, userID string) (*models.AttendanceStreak, error) {
	return getStreak(ctx, r.db, userID, false)
}

// Put overwrites the user's streak.
func (r *StreakRepository) Put(ctx context.Context, streak *models.AttendanceStreak) error {
	return putStreak(ctx, r.db, streak)
}

func getStreak(ctx context.Context, q queryer, userID string, forUpdate bool) (*models.AttendanceStreak, error) {
	query := `SELECT ` + streakColumns + ` FROM attendance_streaks WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var streak models.AttendanceStreak
	if err := q.GetContext(ctx, &streak, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance streak: %w", err)
	}
	return &streak, nil
}

func putStreak(ctx context.Context, q queryer, streak *models.AttendanceStreak) error {
	now := time.Now().UTC()
	if streak.CreatedAt.IsZero() {
		streak.CreatedAt = now
	}
	if streak.UpdatedAt.IsZero() {
		streak.UpdatedAt = now
	}
	query := `INSERT INTO attendance_streaks (` + streakColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id)
DO UPDATE SET current_streak = EXCLUDED.current_streak, last_checked_date = EXCLUDED.last_checked_date,
total_days_marked = EXCLUDED.total_days_marked, longest_streak = EXCLUDED.longest_streak, updated_at = EXCLUDED.updated_at`
	if _, err := q.ExecContext(ctx, query,
		streak.UserID, streak.CurrentStreak, streak.LastCheckedDate, streak.TotalDaysMarked,
		streak.LongestStreak, streak.CreatedAt, streak.UpdatedAt,
	); err != nil {
		return fmt.Errorf("put attendance streak: %w", err)
	}
	return nil
}
