package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance_app_backend/ledger"
	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
	"attendance_app_backend/store"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid date", fmt.Errorf("%w: %q", ledger.ErrInvalidDate, "x"), http.StatusBadRequest, "invalid_date"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "not_found"},
		{"duplicate key", fmt.Errorf("error: %w", &store.DuplicateKeyError{Table: "students", Err: errors.New("boom")}), http.StatusConflict, "duplicate_key"},
		{"unknown course", &registry.UnknownCourseError{Name: "Chess", Slot: 1}, http.StatusBadRequest, "unknown_course"},
		{"unreadable", fmt.Errorf("%w: %w", roster.ErrUnreadableFile, errors.New("bare quote")), http.StatusBadRequest, "unreadable_file"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, logger, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, body["error"], "connection reset")
			}
		})
	}
}
