package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance_app_backend/reconcile"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatsHandler struct {
	engine *reconcile.Engine
	logger *slog.Logger
}

func NewStatsHandler(engine *reconcile.Engine, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{engine: engine, logger: logger}
}

// rangeQuery reads ?date= for a single day, or ?from=&to=.
func rangeQuery(c *gin.Context) (string, string) {
	if d := c.Query("date"); d != "" {
		return d, d
	}
	return c.Query("from"), c.Query("to")
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	from, to := rangeQuery(c)
	stats, err := h.engine.Statistics(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) ExportStats(c *gin.Context) {
	from, to := rangeQuery(c)
	stats, err := h.engine.Statistics(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := reconcile.WriteStatisticsXLSX(&buf, stats); err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("attendance_%s_%s.xlsx", stats.From, stats.To)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
