package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/internal/models"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, userID string, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResponse, error)
	CorrectStatus(ctx context.Context, userID string, req dto.CorrectAttendanceRequest) (*dto.MarkAttendanceResponse, error)
	ListStats(ctx context.Context, userID, classroomID string) ([]models.SubjectAttendanceStats, bool, error)
	ExportStats(ctx context.Context, userID, classroomID string, format dto.StatsExportFormat) (*dto.StatsExport, error)
}

type backfillScheduler interface {
	Schedule(ctx context.Context, userID string, req dto.BackfillRequest) (*dto.BackfillAccepted, error)
}

type streakService interface {
	Get(ctx context.Context, userID string) (*models.AttendanceStreak, error)
	Reconcile(ctx context.Context, userID string) (*models.AttendanceStreak, error)
}

// AttendanceHandler exposes marking, stats and streak endpoints.
type AttendanceHandler struct {
	attendance attendanceService
	backfill   backfillScheduler
	streaks    streakService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance attendanceService, backfill backfillScheduler, streaks streakService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, backfill: backfill, streaks: streaks}
}

// Mark godoc
// @Summary Mark attendance for a class
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkAttendanceRequest true "Attendance mark"
// @Success 200 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	result, err := h.attendance.Mark(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CorrectStatus godoc
// @Summary Correct the status of an existing attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CorrectAttendanceRequest true "Correction"
// @Success 200 {object} response.Envelope
// @Router /attendance/status [patch]
func (h *AttendanceHandler) CorrectStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.CorrectAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	result, err := h.attendance.CorrectStatus(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Backfill godoc
// @Summary Queue a backfill of unmarked classes as absent
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BackfillRequest false "Date, defaults to yesterday"
// @Success 202 {object} response.Envelope
// @Router /attendance/backfill [post]
func (h *AttendanceHandler) Backfill(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.BackfillRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
			return
		}
	}
	accepted, err := h.backfill.Schedule(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, accepted)
}

// Stats godoc
// @Summary Per-class attendance statistics
// @Tags Attendance
// @Produce json
// @Param classroomId query string false "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	stats, cacheHit, err := h.attendance.ListStats(c.Request.Context(), userID, strings.TrimSpace(c.Query("classroomId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, responseMeta(c, cacheHit))
}

// ExportStats godoc
// @Summary Download attendance statistics
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param classroomId query string false "Classroom ID"
// @Success 200 {file} file
// @Router /attendance/stats/export [get]
func (h *AttendanceHandler) ExportStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	format := dto.StatsExportFormat(strings.TrimSpace(c.DefaultQuery("format", string(dto.StatsExportCSV))))
	doc, err := h.attendance.ExportStats(c.Request.Context(), userID, strings.TrimSpace(c.Query("classroomId")), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}

// Streak godoc
// @Summary Current attendance streak
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/streak [get]
func (h *AttendanceHandler) Streak(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	streak, err := h.streaks.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, streak, nil)
}

// ReconcileStreak godoc
// @Summary Rebuild the streak from attendance history
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/streak/reconcile [post]
func (h *AttendanceHandler) ReconcileStreak(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	streak, err := h.streaks.Reconcile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, streak, nil)
}
