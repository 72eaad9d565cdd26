package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

// DefaultMaxWindowDays bounds how many calendar days one request may walk.
const DefaultMaxWindowDays = 731

// CalendarServiceConfig tunes the calendar endpoints.
type CalendarServiceConfig struct {
	MaxWindowDays int
}

// CalendarService exposes working-day arithmetic to clients.
type CalendarService struct {
	calendar *calendar.Calendar
	logger   *zap.Logger
	now      func() time.Time
	cfg      CalendarServiceConfig
}

// NewCalendarService constructs the service.
func NewCalendarService(cal *calendar.Calendar, logger *zap.Logger, cfg CalendarServiceConfig) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cal == nil {
		cal = calendar.New(nil, logger)
	}
	if cfg.MaxWindowDays <= 0 {
		cfg.MaxWindowDays = DefaultMaxWindowDays
	}
	return &CalendarService{calendar: cal, logger: logger, now: time.Now, cfg: cfg}
}

// WorkingDays counts working days in [start, end]. A reversed window counts 0.
func (s *CalendarService) WorkingDays(rawStart, rawEnd string) (*dto.WorkingDaysResponse, error) {
	start, err := parseRequiredDate("start", rawStart)
	if err != nil {
		return nil, err
	}
	end, err := parseRequiredDate("end", rawEnd)
	if err != nil {
		return nil, err
	}
	if !withinWindowLimit(start, end, start, s.cfg.MaxWindowDays) {
		return nil, s.windowTooLong(start, end)
	}
	return &dto.WorkingDaysResponse{Start: start, End: end, WorkingDays: s.calendar.CountWorkingDays(start, end)}, nil
}

// Progress reports how far through [start, end] today is. rawToday defaults to the current date.
func (s *CalendarService) Progress(rawStart, rawEnd, rawToday string) (*dto.SemesterProgressResponse, error) {
	start, err := parseRequiredDate("start", rawStart)
	if err != nil {
		return nil, err
	}
	end, err := parseRequiredDate("end", rawEnd)
	if err != nil {
		return nil, err
	}
	today := calendar.DateOf(s.now().UTC())
	if strings.TrimSpace(rawToday) != "" {
		if today, err = parseRequiredDate("today", rawToday); err != nil {
			return nil, err
		}
	}
	if !withinWindowLimit(start, end, today, s.cfg.MaxWindowDays) {
		return nil, s.windowTooLong(start, end)
	}
	return &dto.SemesterProgressResponse{
		Start:    start,
		End:      end,
		Today:    today,
		Progress: s.calendar.SemesterProgress(start, end, today),
	}, nil
}

func (s *CalendarService) windowTooLong(start, end calendar.Date) error {
	s.logger.Warn("calendar window rejected",
		zap.Stringer("start", start),
		zap.Stringer("end", end),
		zap.Int("max_window_days", s.cfg.MaxWindowDays),
	)
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window may span at most %d days", s.cfg.MaxWindowDays))
}

// withinWindowLimit reports whether counting [start, end] as seen from today
// walks at most maxDays calendar days. Elapsed counts stop at end, so only a
// today before start widens the walk.
func withinWindowLimit(start, end, today calendar.Date, maxDays int) bool {
	if start.DaysUntil(end) > maxDays {
		return false
	}
	return today.DaysUntil(start) <= maxDays
}

func parseRequiredDate(name, raw string) (calendar.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return calendar.Date{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", name))
	}
	date, ok := calendar.Parse(raw)
	if !ok {
		return calendar.Date{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a valid date", name))
	}
	return date, nil
}
