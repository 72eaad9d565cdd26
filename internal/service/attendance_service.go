package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/internal/repository"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/events"
	"github.com/noah-isme/attendance-tracker-api/pkg/export"
)

const (
	markSourceMark       = "mark"
	markSourceCorrection = "correction"
	markSourceBackfill   = "backfill"
)

// errAlreadyMarked stops a backfill write when the slot was marked meanwhile.
var errAlreadyMarked = errors.New("attendance already recorded")

type attendanceStore interface {
	WithinTx(ctx context.Context, fn func(repository.AttendanceWriter) error) error
	ListStats(ctx context.Context, userID, classroomID string) ([]models.SubjectAttendanceStats, error)
}

type classroomDirectory interface {
	ListUserClassrooms(ctx context.Context, userID string) ([]models.Classroom, error)
	ClassSchedule(ctx context.Context, classroomID string) ([]models.ClassSlot, error)
}

type attendanceEventPublisher interface {
	PublishAttendanceMarked(ctx context.Context, event events.AttendanceMarked) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
	ContentType() string
}

// AttendanceServiceConfig tunes caching of stats listings.
type AttendanceServiceConfig struct {
	StatsCacheTTL time.Duration
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Store      attendanceStore
	Classrooms classroomDirectory
	Calendar   *calendar.Calendar
	Cache      *CacheService
	Metrics    *MetricsService
	Publisher  attendanceEventPublisher
	CSV        csvRenderer
	PDF        pdfRenderer
	Validator  *validator.Validate
	Logger     *zap.Logger
	Config     AttendanceServiceConfig
}

// AttendanceService records marks and keeps the per-class stats and the
// streak consistent with the raw records.
type AttendanceService struct {
	store      attendanceStore
	classrooms classroomDirectory
	calendar   *calendar.Calendar
	cache      *CacheService
	metrics    *MetricsService
	publisher  attendanceEventPublisher
	csv        csvRenderer
	pdf        pdfRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	cfg        AttendanceServiceConfig
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cal := params.Calendar
	if cal == nil {
		cal = calendar.New(nil, logger)
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	cfg := params.Config
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = 5 * time.Minute
	}
	svc := &AttendanceService{
		store:      params.Store,
		classrooms: params.Classrooms,
		calendar:   cal,
		cache:      params.Cache,
		metrics:    params.Metrics,
		publisher:  params.Publisher,
		csv:        csv,
		pdf:        pdf,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		status := models.AttendanceStatus(strings.ToLower(fl.Field().String()))
		return status.Valid()
	})
	return svc
}

type markCommand struct {
	key    models.AttendanceKey
	date   calendar.Date
	status models.AttendanceStatus
	reason *string
	source string
}

// Mark records the status of one class on one day. The date defaults to today.
func (s *AttendanceService) Mark(ctx context.Context, userID string, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := s.resolveDate(req.Date, s.today())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, markCommand{
		key:    models.AttendanceKey{UserID: userID, ClassroomID: req.ClassroomID, ClassID: req.ClassID},
		date:   date,
		status: models.AttendanceStatus(strings.ToLower(req.Status)),
		reason: req.Reason,
		source: markSourceMark,
	})
}

// CorrectStatus changes an existing record. Corrections refresh the stats but
// never move the streak.
func (s *AttendanceService) CorrectStatus(ctx context.Context, userID string, req dto.CorrectAttendanceRequest) (*dto.MarkAttendanceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid correction payload")
	}
	date, err := s.resolveDate(req.Date, s.today())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, markCommand{
		key:    models.AttendanceKey{UserID: userID, ClassroomID: req.ClassroomID, ClassID: req.ClassID},
		date:   date,
		status: models.AttendanceStatus(strings.ToLower(req.Status)),
		reason: req.Reason,
		source: markSourceCorrection,
	})
}

// Backfill marks every scheduled, unmarked class of the user on a past date
// as absent. Non-working days are skipped.
func (s *AttendanceService) Backfill(ctx context.Context, userID string, rawDate string) (*dto.BackfillResult, error) {
	today := s.today()
	date, err := s.resolveDate(rawDate, today.AddDays(-1))
	if err != nil {
		return nil, err
	}
	if !date.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "backfill only covers days before today")
	}
	result := &dto.BackfillResult{Date: date.String(), Marked: []string{}}
	if !s.calendar.IsWorkingDay(date) {
		result.Skipped = true
		return result, nil
	}

	classrooms, err := s.classrooms.ListUserClassrooms(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list classrooms")
	}
	weekday := int(date.Weekday())
	for _, classroom := range classrooms {
		slots, err := s.classrooms.ClassSchedule(ctx, classroom.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load class schedule")
		}
		for _, slot := range slots {
			if slot.DayOfWeek != weekday {
				continue
			}
			_, err := s.apply(ctx, markCommand{
				key:    models.AttendanceKey{UserID: userID, ClassroomID: classroom.ID, ClassID: slot.ClassID},
				date:   date,
				status: models.AttendanceStatusAbsent,
				source: markSourceBackfill,
			})
			if errors.Is(err, errAlreadyMarked) {
				continue
			}
			if err != nil {
				return nil, err
			}
			result.Marked = append(result.Marked, slot.ClassID)
		}
	}
	s.logger.Info("attendance backfilled",
		zap.String("user_id", userID),
		zap.String("date", result.Date),
		zap.Int("marked", len(result.Marked)),
	)
	return result, nil
}

// ListStats returns the per-class aggregates of a user, optionally scoped to one classroom.
func (s *AttendanceService) ListStats(ctx context.Context, userID, classroomID string) ([]models.SubjectAttendanceStats, bool, error) {
	key := StatsCacheKey(userID, classroomID)
	var cached []models.SubjectAttendanceStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	start := time.Now()
	stats, err := s.store.ListStats(ctx, userID, classroomID)
	s.metrics.ObserveDBQuery("attendance_stats_list", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load attendance stats")
	}
	if stats == nil {
		stats = []models.SubjectAttendanceStats{}
	}
	_ = s.cache.Set(ctx, key, stats, s.cfg.StatsCacheTTL)
	return stats, false, nil
}

// ExportStats renders the user's stats as CSV or PDF.
func (s *AttendanceService) ExportStats(ctx context.Context, userID, classroomID string, format dto.StatsExportFormat) (*dto.StatsExport, error) {
	format = dto.StatsExportFormat(strings.ToLower(string(format)))
	if format == "" {
		format = dto.StatsExportCSV
	}
	if format != dto.StatsExportCSV && format != dto.StatsExportPDF {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("unsupported export format %q", format))
	}

	stats, _, err := s.ListStats(ctx, userID, classroomID)
	if err != nil {
		return nil, err
	}
	dataset := statsDataset(stats)
	today := s.today()
	filename := fmt.Sprintf("attendance-%s.%s", today.String(), format)

	var (
		body        []byte
		contentType string
	)
	switch format {
	case dto.StatsExportPDF:
		body, err = s.pdf.Render(dataset, "Attendance summary", fmt.Sprintf("Generated %s", today.String()))
		contentType = s.pdf.ContentType()
	default:
		body, err = s.csv.Render(dataset)
		contentType = s.csv.ContentType()
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance export")
	}
	return &dto.StatsExport{Filename: filename, ContentType: contentType, Body: body}, nil
}

var statsExportHeaders = []string{"Subject", "Instructor", "Classroom", "Attended", "Absent", "Total", "Percentage", "Last Marked", "Last Status"}

func statsDataset(stats []models.SubjectAttendanceStats) export.Dataset {
	rows := make([]map[string]string, 0, len(stats))
	for _, st := range stats {
		row := map[string]string{
			"Subject":     st.Subject,
			"Instructor":  st.Instructor,
			"Classroom":   st.ClassroomID,
			"Attended":    strconv.Itoa(st.AttendedClasses),
			"Absent":      strconv.Itoa(st.AbsentClasses),
			"Total":       strconv.Itoa(st.TotalClasses),
			"Percentage":  strconv.FormatFloat(st.AttendancePercentage, 'f', 2, 64),
			"Last Marked": "",
			"Last Status": "",
		}
		if st.LastMarkedDate != nil {
			row["Last Marked"] = calendar.DateOf(*st.LastMarkedDate).String()
		}
		if st.LastMarkedStatus != nil {
			row["Last Status"] = string(*st.LastMarkedStatus)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: statsExportHeaders, Rows: rows}
}

// apply writes the record, recomputes the class aggregate and advances the
// streak in one transaction, then invalidates caches and emits the event.
func (s *AttendanceService) apply(ctx context.Context, cmd markCommand) (*dto.MarkAttendanceResponse, error) {
	now := s.now().UTC()
	resp := &dto.MarkAttendanceResponse{}
	var transition StreakTransition

	start := time.Now()
	err := s.store.WithinTx(ctx, func(tx repository.AttendanceWriter) error {
		record, err := s.writeRecord(ctx, tx, cmd, now)
		if err != nil {
			return err
		}
		resp.Record = record

		records, err := tx.ListRecords(ctx, cmd.key)
		if err != nil {
			return err
		}
		existing, err := tx.GetStats(ctx, cmd.key)
		if err != nil {
			return err
		}
		var slot *models.ClassSlot
		if existing == nil {
			slot = s.lookupSlot(ctx, cmd.key)
		}
		stats := RecomputeSubjectStats(existing, cmd.key, records, slot, now)
		if err := tx.PutStats(ctx, stats); err != nil {
			return err
		}
		resp.Stats = stats

		if cmd.status != models.AttendanceStatusPresent || cmd.source == markSourceCorrection {
			return nil
		}
		prev, err := tx.GetStreakForUpdate(ctx, cmd.key.UserID)
		if err != nil {
			return err
		}
		next, tr, err := s.nextStreak(ctx, tx, prev, cmd, now)
		if err != nil {
			return err
		}
		if err := tx.PutStreak(ctx, next); err != nil {
			return err
		}
		resp.Streak = next
		resp.StreakAdvanced = tr != StreakRepeated
		if tr == StreakRebuilt {
			resp.StreakAdvanced = next.TotalDaysMarked > prev.TotalDaysMarked
		}
		transition = tr
		return nil
	})
	s.metrics.ObserveDBQuery("attendance_mark_tx", time.Since(start))
	if err != nil {
		if errors.Is(err, errAlreadyMarked) {
			return nil, err
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.logger.Error("attendance mark failed",
			zap.String("user_id", cmd.key.UserID),
			zap.String("class_id", cmd.key.ClassID),
			zap.String("date", cmd.date.String()),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to record attendance")
	}

	s.metrics.RecordMark(string(cmd.status), cmd.source)
	if transition != "" {
		s.metrics.RecordStreakTransition(transition)
	}
	if err := s.cache.InvalidateUser(ctx, cmd.key.UserID); err != nil {
		s.logger.Warn("stale attendance cache", zap.String("user_id", cmd.key.UserID), zap.Error(err))
	}
	s.publish(ctx, cmd, resp, now)
	return resp, nil
}

// writeRecord stores the mark. Backfill only ever inserts; marks and
// corrections update the stored record, which must belong to the same classroom.
func (s *AttendanceService) writeRecord(ctx context.Context, tx repository.AttendanceWriter, cmd markCommand, now time.Time) (*models.AttendanceRecord, error) {
	record := &models.AttendanceRecord{
		UserID:      cmd.key.UserID,
		ClassroomID: cmd.key.ClassroomID,
		ClassID:     cmd.key.ClassID,
		Date:        cmd.date.Time(),
		Status:      cmd.status,
		Reason:      cmd.reason,
		MarkedAt:    now,
		UpdatedAt:   now,
	}
	if cmd.source == markSourceBackfill {
		stored, err := tx.InsertRecordIfAbsent(ctx, record)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, errAlreadyMarked
		}
		return stored, nil
	}

	existing, err := tx.GetRecord(ctx, cmd.key.UserID, cmd.key.ClassID, cmd.date.Time())
	if err != nil {
		return nil, err
	}
	if existing == nil && cmd.source == markSourceCorrection {
		return nil, appErrors.Clone(appErrors.ErrRecordNotFound, "no attendance recorded for this class on that date")
	}
	if existing != nil && existing.ClassroomID != cmd.key.ClassroomID {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("class %s on %s is already recorded under classroom %s", cmd.key.ClassID, cmd.date, existing.ClassroomID))
	}
	return tx.UpsertRecord(ctx, record)
}

// nextStreak advances prev by one present mark. A mark dated before the last
// counted day is folded in by replaying every present date instead.
func (s *AttendanceService) nextStreak(ctx context.Context, tx repository.AttendanceWriter, prev *models.AttendanceStreak, cmd markCommand, now time.Time) (*models.AttendanceStreak, StreakTransition, error) {
	if prev == nil || prev.LastCheckedDate == nil || !cmd.date.Before(calendar.DateOf(*prev.LastCheckedDate)) {
		next, tr := AdvanceStreak(prev, cmd.key.UserID, cmd.date, now)
		return next, tr, nil
	}

	raw, err := tx.ListPresentDates(ctx, cmd.key.UserID)
	if err != nil {
		return nil, "", err
	}
	dates := make([]calendar.Date, len(raw))
	for i, t := range raw {
		dates[i] = calendar.DateOf(t)
	}
	rebuilt := ReplayStreak(cmd.key.UserID, dates, now)
	if rebuilt == nil {
		next := *prev
		next.UpdatedAt = now
		return &next, StreakRepeated, nil
	}
	rebuilt.CreatedAt = prev.CreatedAt
	s.logger.Debug("streak replayed for late mark",
		zap.String("user_id", cmd.key.UserID),
		zap.String("date", cmd.date.String()),
		zap.Int("current_streak", rebuilt.CurrentStreak),
	)
	return rebuilt, StreakRebuilt, nil
}

func (s *AttendanceService) publish(ctx context.Context, cmd markCommand, resp *dto.MarkAttendanceResponse, now time.Time) {
	if s.publisher == nil {
		return
	}
	event := events.AttendanceMarked{
		UserID:      cmd.key.UserID,
		ClassroomID: cmd.key.ClassroomID,
		ClassID:     cmd.key.ClassID,
		Date:        cmd.date.String(),
		Status:      string(cmd.status),
		Source:      cmd.source,
		OccurredAt:  now,
	}
	if resp.Stats != nil {
		event.AttendancePercentage = resp.Stats.AttendancePercentage
	}
	if resp.Streak != nil {
		current := resp.Streak.CurrentStreak
		event.CurrentStreak = &current
	}
	if err := s.publisher.PublishAttendanceMarked(ctx, event); err != nil {
		s.metrics.RecordEventFailure()
		s.logger.Warn("attendance event not published", zap.String("user_id", cmd.key.UserID), zap.Error(err))
	}
}

// lookupSlot resolves subject metadata for a new stats row. A missing slot
// only leaves the metadata blank.
func (s *AttendanceService) lookupSlot(ctx context.Context, key models.AttendanceKey) *models.ClassSlot {
	if s.classrooms == nil {
		return nil
	}
	slots, err := s.classrooms.ClassSchedule(ctx, key.ClassroomID)
	if err != nil {
		s.logger.Warn("class schedule unavailable", zap.String("classroom_id", key.ClassroomID), zap.Error(err))
		return nil
	}
	for i := range slots {
		if slots[i].ClassID == key.ClassID {
			return &slots[i]
		}
	}
	s.logger.Warn("class not found in schedule", zap.String("classroom_id", key.ClassroomID), zap.String("class_id", key.ClassID))
	return nil
}

// resolveDate parses raw, using fallback when it is blank. Dates after today are rejected.
func (s *AttendanceService) resolveDate(raw string, fallback calendar.Date) (calendar.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	date, ok := calendar.Parse(raw)
	if !ok {
		return calendar.Date{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", raw))
	}
	if date.After(s.today()) {
		return calendar.Date{}, appErrors.Clone(appErrors.ErrValidation, "attendance cannot be recorded for a future date")
	}
	return date, nil
}

func (s *AttendanceService) today() calendar.Date {
	return calendar.DateOf(s.now().UTC())
}
