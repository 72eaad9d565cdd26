package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

// StreakTransition names the branch AdvanceStreak took, or StreakRebuilt when
// the streak was replayed from history.
type StreakTransition string

const (
	StreakStarted   StreakTransition = "started"
	StreakContinued StreakTransition = "continued"
	StreakRepeated  StreakTransition = "repeated"
	StreakReset     StreakTransition = "reset"
	StreakRebuilt   StreakTransition = "rebuilt"
)

// AdvanceStreak applies one "present" mark on day today to prev and returns
// the next state. prev is never modified. Marking twice on the same day only
// touches UpdatedAt.
func AdvanceStreak(prev *models.AttendanceStreak, userID string, today calendar.Date, now time.Time) (*models.AttendanceStreak, StreakTransition) {
	todayTime := today.Time()
	if prev == nil {
		return &models.AttendanceStreak{
			UserID:          userID,
			CurrentStreak:   1,
			LastCheckedDate: &todayTime,
			TotalDaysMarked: 1,
			LongestStreak:   1,
			CreatedAt:       now,
			UpdatedAt:       now,
		}, StreakStarted
	}

	next := *prev
	next.UpdatedAt = now

	var last calendar.Date
	if prev.LastCheckedDate != nil {
		last = calendar.DateOf(*prev.LastCheckedDate)
	}

	switch {
	case !last.IsZero() && last == today.AddDays(-1):
		next.CurrentStreak++
		next.TotalDaysMarked++
		next.LastCheckedDate = &todayTime
		if next.CurrentStreak > next.LongestStreak {
			next.LongestStreak = next.CurrentStreak
		}
		return &next, StreakContinued
	case !last.IsZero() && last == today:
		if prev.CurrentStreak == 0 && prev.TotalDaysMarked == 0 {
			next.CurrentStreak = 1
			next.TotalDaysMarked = 1
			if next.LongestStreak < 1 {
				next.LongestStreak = 1
			}
			return &next, StreakStarted
		}
		return &next, StreakRepeated
	default:
		next.CurrentStreak = 1
		next.TotalDaysMarked++
		next.LastCheckedDate = &todayTime
		if next.LongestStreak < 1 {
			next.LongestStreak = 1
		}
		return &next, StreakReset
	}
}

// ReplayStreak derives a streak from the dates a user marked present by
// folding AdvanceStreak over them in ascending order. Returns nil for no dates.
func ReplayStreak(userID string, presentDates []calendar.Date, now time.Time) *models.AttendanceStreak {
	if len(presentDates) == 0 {
		return nil
	}
	dates := append([]calendar.Date(nil), presentDates...)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var streak *models.AttendanceStreak
	for i, d := range dates {
		if i > 0 && d == dates[i-1] {
			continue
		}
		streak, _ = AdvanceStreak(streak, userID, d, now)
	}
	return streak
}

type streakStore interface {
	Get(ctx context.Context, userID string) (*models.AttendanceStreak, error)
	Put(ctx context.Context, streak *models.AttendanceStreak) error
}

type presentDateReader interface {
	ListPresentDates(ctx context.Context, userID string) ([]time.Time, error)
}

// StreakService exposes the streak and rebuilds it from raw records on demand.
type StreakService struct {
	streaks streakStore
	records presentDateReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewStreakService constructs the streak service.
func NewStreakService(streaks streakStore, records presentDateReader, logger *zap.Logger) *StreakService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakService{streaks: streaks, records: records, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the user's streak; users who never marked present get a zero streak.
func (s *StreakService) Get(ctx context.Context, userID string) (*models.AttendanceStreak, error) {
	streak, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load streak")
	}
	if streak == nil {
		return &models.AttendanceStreak{UserID: userID}, nil
	}
	return streak, nil
}

// Reconcile recomputes the streak from every present record and overwrites the stored one.
func (s *StreakService) Reconcile(ctx context.Context, userID string) (*models.AttendanceStreak, error) {
	raw, err := s.records.ListPresentDates(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load attendance history")
	}
	dates := make([]calendar.Date, len(raw))
	for i, t := range raw {
		dates[i] = calendar.DateOf(t)
	}

	now := s.now()
	rebuilt := ReplayStreak(userID, dates, now)
	if rebuilt == nil {
		return &models.AttendanceStreak{UserID: userID}, nil
	}

	previous, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load streak")
	}
	if previous != nil {
		rebuilt.CreatedAt = previous.CreatedAt
		if previous.CurrentStreak != rebuilt.CurrentStreak || previous.TotalDaysMarked != rebuilt.TotalDaysMarked {
			s.logger.Info("streak reconciled",
				zap.String("user_id", userID),
				zap.Int("stored_current", previous.CurrentStreak),
				zap.Int("rebuilt_current", rebuilt.CurrentStreak),
				zap.Int("stored_total", previous.TotalDaysMarked),
				zap.Int("rebuilt_total", rebuilt.TotalDaysMarked),
			)
		}
	}
	if err := s.streaks.Put(ctx, rebuilt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store streak")
	}
	return rebuilt, nil
}
