package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance_app_backend/ledger"
	"attendance_app_backend/models"
	"attendance_app_backend/reconcile"
)

type AttendanceHandler struct {
	ledger *ledger.Ledger
	engine *reconcile.Engine
	logger *slog.Logger
}

func NewAttendanceHandler(l *ledger.Ledger, engine *reconcile.Engine, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{ledger: l, engine: engine, logger: logger}
}

// MarkPresence upserts one mark. Repeating a call overwrites the earlier value.
func (h *AttendanceHandler) MarkPresence(c *gin.Context) {
	var req models.MarkPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.engine.MarkPresence(c.Request.Context(), *req.StudentID, req.CourseID, req.Date, *req.Present)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *AttendanceHandler) GetAttendanceForDate(c *gin.Context) {
	recs, err := h.ledger.ForDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if recs == nil {
		recs = []models.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

func (h *AttendanceHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.engine.ComputeAfternoonGapAlert(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *AttendanceHandler) GetDayView(c *gin.Context) {
	view, err := h.engine.DayView(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
