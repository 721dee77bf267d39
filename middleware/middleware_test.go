package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance_app_backend/models"
)

var secret = []byte("test-secret")

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AuthMiddleware(secret, slog.New(slog.NewTextHandler(io.Discard, nil))))
	r.GET("/staff", RequireRole(models.RoleStaff), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRoles(t *testing.T) {
	r := newRouter()
	ts := NewTokenService(secret)

	staff, err := ts.GenerateToken(1, models.RoleStaff, time.Hour)
	require.NoError(t, err)
	admin, err := ts.GenerateToken(2, models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(r, "/staff", staff).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", staff).Code)
	assert.Equal(t, http.StatusOK, get(r, "/staff", admin).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin", admin).Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, get(r, "/staff", "").Code)

	expired, err := NewTokenService(secret).GenerateToken(1, models.RoleStaff, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/staff", expired).Code)

	forged, err := NewTokenService([]byte("other")).GenerateToken(1, models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/staff", forged).Code)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.Claims{UserID: 1}).SignedString(secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/staff", noRole).Code)

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err = NewTokenService(secret).GenerateToken(1, "janitor", time.Hour)
	assert.Error(t, err)
}

func TestDisabledAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(DisabledAuth())
	r.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, get(r, "/admin", "").Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	w := get(r, "/", "")
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Body.String())
}
