package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendance_app_backend/ledger"
	"attendance_app_backend/models"
	"attendance_app_backend/reconcile"
	"attendance_app_backend/registry"
)

type CourseHandler struct {
	catalog *registry.Catalog
	engine  *reconcile.Engine
	logger  *slog.Logger
}

func NewCourseHandler(catalog *registry.Catalog, engine *reconcile.Engine, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{catalog: catalog, engine: engine, logger: logger}
}

// GetCourses lists the registry, optionally filtered by ?slot=1|2.
func (h *CourseHandler) GetCourses(c *gin.Context) {
	reg := h.catalog.Current()

	slotParam := c.Query("slot")
	if slotParam == "" {
		c.JSON(http.StatusOK, reg.Courses())
		return
	}

	n, err := strconv.Atoi(slotParam)
	if err != nil || !models.Slot(n).Valid() {
		badRequest(c, "slot must be 1 or 2")
		return
	}
	c.JSON(http.StatusOK, reg.BySlot(models.Slot(n)))
}

func (h *CourseHandler) GetRegistry(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Info())
}

func (h *CourseHandler) GetCourseSheet(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid course ID")
		return
	}

	sheet, err := h.engine.CourseSheet(c.Request.Context(), id, dateQuery(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

// dateQuery returns ?date=, defaulting to today.
func dateQuery(c *gin.Context) string {
	return c.DefaultQuery("date", time.Now().Format(ledger.DateLayout))
}
