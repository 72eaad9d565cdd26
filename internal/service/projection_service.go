package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
)

type projectionStore interface {
	ListStats(ctx context.Context, userID, classroomID string) ([]models.SubjectAttendanceStats, error)
	CountPresentDays(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// ProjectionServiceConfig tunes the dashboard.
type ProjectionServiceConfig struct {
	CacheTTL      time.Duration
	DefaultTarget float64
	MaxWindowDays int
}

// ProjectionService composes the attendance dashboard.
type ProjectionService struct {
	store     projectionStore
	calendar  *calendar.Calendar
	projector *Projector
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	cfg       ProjectionServiceConfig
}

// NewProjectionService constructs the dashboard service.
func NewProjectionService(store projectionStore, cal *calendar.Calendar, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ProjectionServiceConfig) *ProjectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cal == nil {
		cal = calendar.New(nil, logger)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.DefaultTarget <= 0 || cfg.DefaultTarget > 100 {
		cfg.DefaultTarget = DefaultTargetPercentage
	}
	if cfg.MaxWindowDays <= 0 {
		cfg.MaxWindowDays = DefaultMaxWindowDays
	}
	return &ProjectionService{
		store:     store,
		calendar:  cal,
		projector: NewProjector(cal),
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Dashboard answers how many classes are still needed and how many can be
// missed. Incomplete input degrades to zero values; only a missing window
// asks the client for setup.
func (s *ProjectionService) Dashboard(ctx context.Context, userID string, req dto.ProjectionRequest) (*dto.DashboardProjectionResponse, bool, error) {
	today := calendar.DateOf(s.now().UTC())
	target := s.target(req.TargetPercentage)

	cacheKey := ProjectionCacheKey(userID, fingerprint(today, req, target))
	var cached dto.DashboardProjectionResponse
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	classes, err := s.classes(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	resp := &dto.DashboardProjectionResponse{
		Today:      today,
		Projection: dto.Projection{Mode: dto.ProjectionModeBasic},
		Classes:    classes,
	}

	rawStart, rawEnd := strings.TrimSpace(req.SemesterStart), strings.TrimSpace(req.SemesterEnd)
	if rawStart == "" && rawEnd == "" {
		resp.SetupRequired = true
		return resp, false, nil
	}

	start, startOK := calendar.Parse(rawStart)
	end, endOK := calendar.Parse(rawEnd)
	if !startOK || !endOK {
		s.logger.Warn("semester window unparsable",
			zap.String("user_id", userID),
			zap.String("semester_start", rawStart),
			zap.String("semester_end", rawEnd),
		)
		s.storeCached(ctx, cacheKey, resp)
		return resp, false, nil
	}
	if !withinWindowLimit(start, end, today, s.cfg.MaxWindowDays) {
		s.logger.Warn("semester window too long",
			zap.String("user_id", userID),
			zap.Stringer("semester_start", start),
			zap.Stringer("semester_end", end),
		)
		s.storeCached(ctx, cacheKey, resp)
		return resp, false, nil
	}

	window := dto.SemesterWindow{StartDate: start, EndDate: end, TargetPercentage: target}
	if raw := strings.TrimSpace(req.RegistrationDate); raw != "" {
		if registration, ok := calendar.Parse(raw); ok {
			window.RegistrationDate = &registration
		} else {
			s.logger.Warn("registration date unparsable, using basic projection", zap.String("user_id", userID), zap.String("registration_date", raw))
		}
	}
	resp.Window = &window

	attended, err := s.attendedDays(ctx, userID, window, today, req.AttendedDays)
	if err != nil {
		return nil, false, err
	}
	resp.AttendedDays = attended
	resp.Progress = s.calendar.SemesterProgress(start, end, today)
	resp.Projection = s.projector.ProjectWithPreRegistration(window, attended, today)

	s.storeCached(ctx, cacheKey, resp)
	return resp, false, nil
}

func (s *ProjectionService) target(requested *float64) float64 {
	if requested == nil {
		return s.cfg.DefaultTarget
	}
	target := *requested
	switch {
	case math.IsNaN(target) || math.IsInf(target, 0):
		s.logger.Warn("target percentage not a number, using default", zap.Float64("target", target))
		return s.cfg.DefaultTarget
	case target < 0:
		s.logger.Warn("target percentage below range, clamping", zap.Float64("target", target))
		return 0
	case target > 100:
		s.logger.Warn("target percentage above range, clamping", zap.Float64("target", target))
		return 100
	}
	return target
}

// attendedDays prefers the caller's count and otherwise counts distinct days
// with a present mark inside the window, up to today.
func (s *ProjectionService) attendedDays(ctx context.Context, userID string, window dto.SemesterWindow, today calendar.Date, explicit *int) (int, error) {
	if explicit != nil {
		if *explicit >= 0 {
			return *explicit, nil
		}
		s.logger.Warn("negative attended days ignored", zap.String("user_id", userID), zap.Int("attended_days", *explicit))
	}
	if today.Before(window.StartDate) || window.StartDate.After(window.EndDate) {
		return 0, nil
	}
	until := today
	if until.After(window.EndDate) {
		until = window.EndDate
	}
	start := time.Now()
	count, err := s.store.CountPresentDays(ctx, userID, window.StartDate.Time(), until.Time())
	s.metrics.ObserveDBQuery("attendance_present_days", time.Since(start))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count attended days")
	}
	return count, nil
}

func (s *ProjectionService) classes(ctx context.Context, userID string) ([]models.SubjectAttendanceStats, error) {
	start := time.Now()
	stats, err := s.store.ListStats(ctx, userID, "")
	s.metrics.ObserveDBQuery("attendance_stats_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load attendance stats")
	}
	if stats == nil {
		stats = []models.SubjectAttendanceStats{}
	}
	return stats, nil
}

func (s *ProjectionService) storeCached(ctx context.Context, key string, resp *dto.DashboardProjectionResponse) {
	_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
}

// fingerprint identifies one dashboard query; it includes today because every
// figure depends on it.
func fingerprint(today calendar.Date, req dto.ProjectionRequest, target float64) string {
	attended := "auto"
	if req.AttendedDays != nil {
		attended = fmt.Sprintf("%d", *req.AttendedDays)
	}
	raw := strings.Join([]string{
		today.String(),
		strings.TrimSpace(req.SemesterStart),
		strings.TrimSpace(req.SemesterEnd),
		strings.TrimSpace(req.RegistrationDate),
		fmt.Sprintf("%.4f", target),
		attended,
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:12])
}
