package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance_app_backend/ledger"
	"attendance_app_backend/middleware"
	"attendance_app_backend/reconcile"
	"attendance_app_backend/roster"
	"attendance_app_backend/store"
)

// respondError maps domain errors to a status and a machine-readable code.
// Anything unrecognised is logged and reported as a 500 without details.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal"
	var coded interface{ Code() string }

	switch {
	case errors.Is(err, ledger.ErrInvalidDate):
		status, code = http.StatusBadRequest, "invalid_date"
	case errors.Is(err, ledger.ErrInvalidRange):
		status, code = http.StatusBadRequest, "invalid_range"
	case errors.Is(err, reconcile.ErrCourseNotFound):
		status, code = http.StatusNotFound, "course_not_found"
	case errors.Is(err, reconcile.ErrNotEnrolled):
		status, code = http.StatusUnprocessableEntity, "not_enrolled"
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, roster.ErrEmptySource), errors.Is(err, roster.ErrUnsupportedFormat),
		errors.Is(err, roster.ErrUnreadableFile):
		status, code = http.StatusBadRequest, "unreadable_file"
	case errors.As(err, &coded):
		status, code = http.StatusBadRequest, coded.Code()
		var dup *store.DuplicateKeyError
		if errors.As(err, &dup) {
			status = http.StatusConflict
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err, "request_id", middleware.RequestIDFrom(c))
		c.JSON(status, gin.H{"error": "Internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}
