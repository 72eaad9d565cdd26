package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
)

const recordColumns = `id, user_id, classroom_id, class_id, date, status, reason, marked_at, updated_at`

const statsColumns = `id, user_id, classroom_id, class_id, subject, instructor, total_classes, attended_classes,
absent_classes, attendance_percentage, last_marked_date, last_marked_status, created_at, updated_at`

const streakColumns = `user_id, current_streak, last_checked_date, total_days_marked, longest_streak, created_at, updated_at`

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// AttendanceWriter is the transactional view used by the mark pipeline. Every
// call made through it commits or rolls back together.
type AttendanceWriter interface {
	GetRecord(ctx context.Context, userID, classID string, date time.Time) (*models.AttendanceRecord, error)
	UpsertRecord(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	InsertRecordIfAbsent(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	ListPresentDates(ctx context.Context, userID string) ([]time.Time, error)
	ListRecords(ctx context.Context, key models.AttendanceKey) ([]models.AttendanceRecord, error)
	GetStats(ctx context.Context, key models.AttendanceKey) (*models.SubjectAttendanceStats, error)
	PutStats(ctx context.Context, stats *models.SubjectAttendanceStats) error
	GetStreakForUpdate(ctx context.Context, userID string) (*models.AttendanceStreak, error)
	PutStreak(ctx context.Context, streak *models.AttendanceStreak) error
}

// AttendanceRepository persists raw attendance records and their per-class aggregates.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// WithinTx runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (r *AttendanceRepository) WithinTx(ctx context.Context, fn func(AttendanceWriter) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&attendanceTx{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance transaction: %w", err)
	}
	return nil
}

// ListRecords returns every raw record for the aggregate key ordered by date.
func (r *AttendanceRepository) ListRecords(ctx context.Context, key models.AttendanceKey) ([]models.AttendanceRecord, error) {
	return listRecords(ctx, r.db, key)
}

// ListStats returns cached aggregates for a user, optionally scoped to a classroom.
func (r *AttendanceRepository) ListStats(ctx context.Context, userID, classroomID string) ([]models.SubjectAttendanceStats, error) {
	query := `SELECT ` + statsColumns + ` FROM subject_attendance_stats WHERE user_id = $1`
	args := []interface{}{userID}
	if classroomID != "" {
		query += ` AND classroom_id = $2`
		args = append(args, classroomID)
	}
	query += ` ORDER BY subject ASC, class_id ASC`

	var rows []models.SubjectAttendanceStats
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance stats: %w", err)
	}
	return rows, nil
}

// ListPresentDates returns the distinct dates on which the user marked at least
// one class present, ascending.
func (r *AttendanceRepository) ListPresentDates(ctx context.Context, userID string) ([]time.Time, error) {
	return listPresentDates(ctx, r.db, userID)
}

// CountPresentDays counts distinct dates within [from, to] with at least one present mark.
func (r *AttendanceRepository) CountPresentDays(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(DISTINCT date) FROM attendance_records
WHERE user_id = $1 AND status = $2 AND date BETWEEN $3 AND $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.AttendanceStatusPresent, from, to); err != nil {
		return 0, fmt.Errorf("count present days: %w", err)
	}
	return count, nil
}

type attendanceTx struct {
	q queryer
}

// GetRecord returns the record for a user, class and date or nil when none exists.
func (t *attendanceTx) GetRecord(ctx context.Context, userID, classID string, date time.Time) (*models.AttendanceRecord, error) {
	return getRecord(ctx, t.q, userID, classID, date)
}

// UpsertRecord inserts the record or updates status and reason of the one
// already stored for (user, class, date). The stored classroom never changes.
func (t *attendanceTx) UpsertRecord(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	prepareRecord(record)
	query := `INSERT INTO attendance_records (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id, class_id, date)
DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at
RETURNING ` + recordColumns
	var stored models.AttendanceRecord
	if err := t.q.GetContext(ctx, &stored, query, recordArgs(record)...); err != nil {
		return nil, fmt.Errorf("upsert attendance record: %w", err)
	}
	return &stored, nil
}

// InsertRecordIfAbsent inserts the record unless one already exists for
// (user, class, date), in which case it returns nil.
func (t *attendanceTx) InsertRecordIfAbsent(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	prepareRecord(record)
	query := `INSERT INTO attendance_records (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id, class_id, date) DO NOTHING
RETURNING ` + recordColumns
	var stored models.AttendanceRecord
	if err := t.q.GetContext(ctx, &stored, query, recordArgs(record)...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("insert attendance record: %w", err)
	}
	return &stored, nil
}

func (t *attendanceTx) ListPresentDates(ctx context.Context, userID string) ([]time.Time, error) {
	return listPresentDates(ctx, t.q, userID)
}

func (t *attendanceTx) ListRecords(ctx context.Context, key models.AttendanceKey) ([]models.AttendanceRecord, error) {
	return listRecords(ctx, t.q, key)
}

func (t *attendanceTx) GetStats(ctx context.Context, key models.AttendanceKey) (*models.SubjectAttendanceStats, error) {
	query := `SELECT ` + statsColumns + ` FROM subject_attendance_stats
WHERE user_id = $1 AND classroom_id = $2 AND class_id = $3 FOR UPDATE`
	var stats models.SubjectAttendanceStats
	if err := t.q.GetContext(ctx, &stats, query, key.UserID, key.ClassroomID, key.ClassID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance stats: %w", err)
	}
	return &stats, nil
}

func (t *attendanceTx) PutStats(ctx context.Context, stats *models.SubjectAttendanceStats) error {
	now := time.Now().UTC()
	if stats.ID == "" {
		stats.ID = uuid.NewString()
	}
	if stats.CreatedAt.IsZero() {
		stats.CreatedAt = now
	}
	stats.UpdatedAt = now

	query := `INSERT INTO subject_attendance_stats (` + statsColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (user_id, classroom_id, class_id)
DO UPDATE SET total_classes = EXCLUDED.total_classes, attended_classes = EXCLUDED.attended_classes,
absent_classes = EXCLUDED.absent_classes, attendance_percentage = EXCLUDED.attendance_percentage,
last_marked_date = EXCLUDED.last_marked_date, last_marked_status = EXCLUDED.last_marked_status,
updated_at = EXCLUDED.updated_at`
	if _, err := t.q.ExecContext(ctx, query,
		stats.ID, stats.UserID, stats.ClassroomID, stats.ClassID, stats.Subject, stats.Instructor,
		stats.TotalClasses, stats.AttendedClasses, stats.AbsentClasses, stats.AttendancePercentage,
		stats.LastMarkedDate, stats.LastMarkedStatus, stats.CreatedAt, stats.UpdatedAt,
	); err != nil {
		return fmt.Errorf("put attendance stats: %w", err)
	}
	return nil
}

func (t *attendanceTx) GetStreakForUpdate(ctx context.Context, userID string) (*models.AttendanceStreak, error) {
	return getStreak(ctx, t.q, userID, true)
}

func (t *attendanceTx) PutStreak(ctx context.Context, streak *models.AttendanceStreak) error {
	return putStreak(ctx, t.q, streak)
}

func prepareRecord(record *models.AttendanceRecord) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.MarkedAt.IsZero() {
		record.MarkedAt = now
	}
	record.UpdatedAt = now
}

func recordArgs(record *models.AttendanceRecord) []interface{} {
	return []interface{}{
		record.ID, record.UserID, record.ClassroomID, record.ClassID, record.Date,
		record.Status, record.Reason, record.MarkedAt, record.UpdatedAt,
	}
}

func listPresentDates(ctx context.Context, q queryer, userID string) ([]time.Time, error) {
	const query = `SELECT DISTINCT date FROM attendance_records WHERE user_id = $1 AND status = $2 ORDER BY date ASC`
	var dates []time.Time
	if err := q.SelectContext(ctx, &dates, query, userID, models.AttendanceStatusPresent); err != nil {
		return nil, fmt.Errorf("list present dates: %w", err)
	}
	return dates, nil
}

func getRecord(ctx context.Context, q queryer, userID, classID string, date time.Time) (*models.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE user_id = $1 AND class_id = $2 AND date = $3`
	var record models.AttendanceRecord
	if err := q.GetContext(ctx, &record, query, userID, classID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}
	return &record, nil
}

func listRecords(ctx context.Context, q queryer, key models.AttendanceKey) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records
WHERE user_id = $1 AND classroom_id = $2 AND class_id = $3 ORDER BY date ASC`
	var rows []models.AttendanceRecord
	if err := q.SelectContext(ctx, &rows, query, key.UserID, key.ClassroomID, key.ClassID); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return rows, nil
}
