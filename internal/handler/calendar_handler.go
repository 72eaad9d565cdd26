package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	"github.com/noah-isme/attendance-tracker-api/pkg/response"
)

type calendarService interface {
	WorkingDays(rawStart, rawEnd string) (*dto.WorkingDaysResponse, error)
	Progress(rawStart, rawEnd, rawToday string) (*dto.SemesterProgressResponse, error)
}

// CalendarHandler exposes working-day arithmetic.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// WorkingDays godoc
// @Summary Count working days in a window
// @Tags Calendar
// @Produce json
// @Param start query string true "Window start"
// @Param end query string true "Window end"
// @Success 200 {object} response.Envelope
// @Router /calendar/working-days [get]
func (h *CalendarHandler) WorkingDays(c *gin.Context) {
	result, err := h.service.WorkingDays(c.Query("start"), c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Progress godoc
// @Summary Semester progress as of today
// @Tags Calendar
// @Produce json
// @Param start query string true "Semester start"
// @Param end query string true "Semester end"
// @Param today query string false "Reference date, defaults to the current date"
// @Success 200 {object} response.Envelope
// @Router /calendar/progress [get]
func (h *CalendarHandler) Progress(c *gin.Context) {
	result, err := h.service.Progress(c.Query("start"), c.Query("end"), c.Query("today"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
