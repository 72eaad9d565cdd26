package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/service"
	"github.com/noah-isme/attendance-tracker-api/pkg/calendar"
)

func newCalendarRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cal := calendar.New(calendar.DefaultHolidays(), zap.NewNop())
	h := NewCalendarHandler(service.NewCalendarService(cal, zap.NewNop(), service.CalendarServiceConfig{}))
	r := gin.New()
	r.GET("/calendar/working-days", h.WorkingDays)
	r.GET("/calendar/progress", h.Progress)
	return r
}

func TestCalendarHandlerWorkingDays(t *testing.T) {
	r := newCalendarRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/working-days?start=2025-04-01&end=30/04/2025", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 25, envelope.Data["workingDays"])
	assert.Equal(t, "2025-04-30", envelope.Data["end"])
}

func TestCalendarHandlerWorkingDaysRejectsGarbage(t *testing.T) {
	r := newCalendarRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/working-days?start=soon&end=2025-04-30", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarHandlerWorkingDaysRejectsOversizedWindow(t *testing.T) {
	r := newCalendarRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/working-days?start=0001-01-01&end=9999-12-31", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalendarHandlerProgress(t *testing.T) {
	r := newCalendarRouter()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar/progress?start=2025-04-01&end=2025-04-30&today=2025-04-07", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	progress := envelope.Data["progress"].(map[string]interface{})
	assert.EqualValues(t, 25, progress["totalWorkingDays"])
	assert.EqualValues(t, 6, progress["elapsedWorkingDays"])
	assert.EqualValues(t, 20, progress["remainingWorkingDays"])
}
