package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/pkg/response"
)

type projectionService interface {
	Dashboard(ctx context.Context, userID string, req dto.ProjectionRequest) (*dto.DashboardProjectionResponse, bool, error)
}

// ProjectionHandler serves the attendance dashboard.
type ProjectionHandler struct {
	service projectionService
}

// NewProjectionHandler constructs the handler.
func NewProjectionHandler(service projectionService) *ProjectionHandler {
	return &ProjectionHandler{service: service}
}

// Dashboard godoc
// @Summary Attendance projection for a semester window
// @Tags Attendance
// @Produce json
// @Param semesterStart query string false "Semester start (YYYY-MM-DD, DD/MM/YYYY or DDMMYYYY)"
// @Param semesterEnd query string false "Semester end"
// @Param registrationDate query string false "Date the student joined"
// @Param targetPercentage query number false "Target percentage, defaults to 75"
// @Param attendedDays query integer false "Attended days, counted from records when absent"
// @Success 200 {object} response.Envelope
// @Router /attendance/projection [get]
func (h *ProjectionHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	req := dto.ProjectionRequest{
		SemesterStart:    c.Query("semesterStart"),
		SemesterEnd:      c.Query("semesterEnd"),
		RegistrationDate: c.Query("registrationDate"),
	}
	// Unparsable numbers fall back to defaults.
	if raw := strings.TrimSpace(c.Query("targetPercentage")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			req.TargetPercentage = &v
		}
	}
	if raw := strings.TrimSpace(c.Query("attendedDays")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			req.AttendedDays = &v
		}
	}

	start := time.Now()
	result, cacheHit, err := h.service.Dashboard(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := responseMeta(c, cacheHit)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}
