package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"attendance_app_backend/db"
	"attendance_app_backend/ledger"
	"attendance_app_backend/middleware"
	"attendance_app_backend/models"
	"attendance_app_backend/reconcile"
	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
)

var secret = []byte("routes-test-secret")

type testServer struct {
	t      *testing.T
	router *gin.Engine
	staff  string
	admin  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newServer(t, registry.Fixed)
}

func newServer(t *testing.T, mode registry.Mode) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	conn, err := db.Initialize(ctx, db.Config{Driver: db.DriverSQLite, Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(ctx, conn))
	st := db.NewStore(conn, db.DriverSQLite)
	t.Cleanup(func() { _ = st.Close(ctx) })

	catalog := registry.NewCatalog(st, mode, registry.Lists{
		Slot1: []string{"Math", "Art"},
		Slot2: []string{"Music", "Sport"},
	}, logger)
	require.NoError(t, catalog.Ensure(ctx, false))

	l := ledger.New(st)
	engine := reconcile.NewEngine(st, l, catalog)

	r := gin.New()
	SetupRoutes(r, Dependencies{
		Store:          st,
		Catalog:        catalog,
		Ledger:         l,
		Engine:         engine,
		Importer:       roster.NewImporter(st, catalog, roster.DefaultPolicy(), logger),
		Mapping:        roster.DefaultMapping(),
		MaxUploadBytes: 1 << 20,
		Auth:           middleware.AuthMiddleware(secret, logger),
		Logger:         logger,
	})

	ts := middleware.NewTokenService(secret)
	staff, err := ts.GenerateToken(1, models.RoleStaff, time.Hour)
	require.NoError(t, err)
	admin, err := ts.GenerateToken(2, models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	return &testServer{t: t, router: r, staff: staff, admin: admin}
}

func (s *testServer) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(http.MethodGet, path, s.staff, nil, "")
}

func (s *testServer) upload(token, filename string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = fw.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())
	return s.do(http.MethodPost, "/students/import", token, &body, mw.FormDataContentType())
}

func (s *testServer) mark(student int64, course int, date string, present bool) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]any{
		"student_id": student, "course_id": course, "date": date, "present": present,
	})
	return s.do(http.MethodPost, "/attendance", s.staff, bytes.NewReader(body), "application/json")
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const rosterHeader = "student id,first name,last name,morning course,afternoon course\n"

func TestAfternoonGapAlertScenario(t *testing.T) {
	s := newTestServer(t)

	w := s.upload(s.admin, "roster.csv", []byte(rosterHeader+"7,Noa,Cohen,Math,Sport\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[models.ImportReport](t, w)
	assert.Equal(t, 1, report.Accepted)
	assert.True(t, report.Replaced)

	require.Equal(t, http.StatusOK, s.mark(7, 1, "2024-01-01", true).Code)

	w = s.get("/attendance/2024-01-01/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	alerts := decode[[]models.GapAlert](t, w)
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(7), alerts[0].StudentID)
	assert.Equal(t, "Math", alerts[0].MorningCourseName)
	assert.Equal(t, "Sport", alerts[0].AfternoonCourseName)

	require.Equal(t, http.StatusOK, s.mark(7, 4, "2024-01-01", true).Code)

	w = s.get("/attendance/2024-01-01/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/courses", "", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, s.upload(s.staff, "roster.csv", []byte(rosterHeader)).Code)
	assert.Equal(t, http.StatusForbidden, s.get("/stats/export?date=2024-01-01").Code)

	w := s.get("/courses")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestImportResponses(t *testing.T) {
	s := newTestServer(t)

	w := s.upload(s.admin, "roster.csv", []byte("student id,first name\n1,Noa\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_column", decode[map[string]string](t, w)["code"])

	w = s.upload(s.admin, "roster.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unreadable_file", decode[map[string]string](t, w)["code"])

	w = s.upload(s.admin, "roster.csv", []byte(rosterHeader+"1,Noa,Cohen,Chess,Sport\n"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	report := decode[models.ImportReport](t, w)
	assert.False(t, report.Replaced)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "invalid_course", report.Rejected[0].Code)
	assert.Equal(t, 2, report.Rejected[0].Row)

	w = s.upload(s.admin, "roster.csv", []byte(rosterHeader+"1,Noa,Cohen,Math,Sport\n,Omer,Levi,Art,Music\n"))
	assert.Equal(t, http.StatusOK, w.Code)
	report = decode[models.ImportReport](t, w)
	assert.Equal(t, 1, report.Accepted)
	assert.Equal(t, 1, report.RejectedCount)
	assert.Equal(t, "missing_field", report.Rejected[0].Code)

	w = s.do(http.MethodPost, "/students/import", s.admin, strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportXLSX(t *testing.T) {
	s := newTestServer(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]any{
		{"מספר תלמיד", "שם פרטי", "שם משפחה", "קורס רצועה ראשונה", "קורס רצועה שנייה"},
		{"12-3", "Dana", "Levi", "Art", "Music"},
	} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	w := s.upload(s.admin, "roster.xlsx", buf.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.get("/students?with_courses=true")
	require.Equal(t, http.StatusOK, w.Code)
	students := decode[[]models.StudentWithCoursesResponse](t, w)
	require.Len(t, students, 1)
	assert.Equal(t, int64(123), students[0].ID)
	assert.Equal(t, "Art", students[0].MorningCourseName)
	assert.Equal(t, "Music", students[0].AfternoonCourseName)
}

func TestMarkPresenceErrors(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.upload(s.admin, "roster.csv", []byte(rosterHeader+"7,Noa,Cohen,Math,Sport\n")).Code)

	w := s.mark(7, 2, "2024-01-01", true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "not_enrolled", decode[map[string]string](t, w)["code"])

	w = s.mark(8, 1, "2024-01-01", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.mark(7, 1, "01/01/2024", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_date", decode[map[string]string](t, w)["code"])

	w = s.do(http.MethodPost, "/attendance", s.staff, strings.NewReader(`{"student_id":7,"course_id":1,"date":"2024-01-01"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code, "present is required")

	require.Equal(t, http.StatusOK, s.mark(7, 1, "2024-01-01", true).Code)
	require.Equal(t, http.StatusOK, s.mark(7, 1, "2024-01-01", false).Code)
	w = s.get("/attendance/2024-01-01")
	require.Equal(t, http.StatusOK, w.Code)
	recs := decode[[]models.AttendanceRecord](t, w)
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Present)

	assert.JSONEq(t, "[]", s.get("/attendance/2024-01-02").Body.String())
	assert.Equal(t, http.StatusBadRequest, s.get("/attendance/yesterday").Code)
}

func TestMarkPresenceStudentZero(t *testing.T) {
	s := newTestServer(t)
	w := s.upload(s.admin, "roster.csv", []byte(rosterHeader+"00,Noa,Cohen,Math,Sport\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[models.ImportReport](t, w).Accepted)

	w = s.mark(0, 1, "2024-01-01", true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(0), decode[models.AttendanceRecord](t, w).StudentID)

	alerts := decode[[]models.GapAlert](t, s.get("/attendance/2024-01-01/alerts"))
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(0), alerts[0].StudentID)

	w = s.do(http.MethodPost, "/attendance", s.staff,
		strings.NewReader(`{"course_id":1,"date":"2024-01-01","present":true}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code, "student_id is required")
}

func TestDynamicReimportKeepsCourseIDs(t *testing.T) {
	s := newServer(t, registry.Dynamic)
	w := s.upload(s.admin, "roster.csv", []byte(rosterHeader+"7,Noa,Cohen,Math,Sport\n8,Omer,Levi,Art,Music\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	before := decode[[]models.Course](t, s.get("/courses"))
	require.Equal(t, models.Course{ID: 1, Name: "Math", Slot: models.MorningSlot}, before[0])

	require.Equal(t, http.StatusOK, s.mark(7, 1, "2024-01-01", true).Code)
	require.Len(t, decode[[]models.GapAlert](t, s.get("/attendance/2024-01-01/alerts")), 1)

	w = s.upload(s.admin, "roster.csv", []byte(rosterHeader+"8,Omer,Levi,Art,Music\n7,Noa,Cohen,Math,Sport\n"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, before, decode[[]models.Course](t, s.get("/courses")))

	alerts := decode[[]models.GapAlert](t, s.get("/attendance/2024-01-01/alerts"))
	require.Len(t, alerts, 1)
	assert.Equal(t, "Math", alerts[0].MorningCourseName)

	stats := decode[models.StatsResponse](t, s.get("/stats?date=2024-01-01"))
	require.NotEmpty(t, stats.Courses)
	assert.Equal(t, 1, stats.Courses[0].CourseID)
	assert.Equal(t, "Math", stats.Courses[0].CourseName)
	assert.Equal(t, 1, stats.Courses[0].Marked)
}

func TestCourseEndpoints(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.upload(s.admin, "roster.csv",
		[]byte(rosterHeader+"7,Noa,Cohen,Math,Sport\n8,Omer,Levi,Math,Music\n")).Code)

	w := s.get("/courses?slot=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.Course{
		{ID: 3, Name: "Music", Slot: models.AfternoonSlot},
		{ID: 4, Name: "Sport", Slot: models.AfternoonSlot},
	}, decode[[]models.Course](t, w))

	assert.Len(t, decode[[]models.Course](t, s.get("/courses")), 4)
	assert.Equal(t, http.StatusBadRequest, s.get("/courses?slot=3").Code)

	info := decode[models.RegistryResponse](t, s.get("/courses/registry"))
	assert.Equal(t, 1, info.Version)
	assert.Equal(t, "fixed", info.Mode)
	assert.False(t, info.Drift)

	require.Equal(t, http.StatusOK, s.mark(8, 1, "2024-01-01", true).Code)
	w = s.get("/courses/1/sheet?date=2024-01-01")
	require.Equal(t, http.StatusOK, w.Code)
	sheet := decode[models.CourseSheetResponse](t, w)
	require.Len(t, sheet.Students, 2)
	assert.Equal(t, models.Unmarked, sheet.Students[0].Mark)
	assert.Equal(t, models.MarkedPresent, sheet.Students[1].Mark)

	assert.Equal(t, http.StatusNotFound, s.get("/courses/99/sheet?date=2024-01-01").Code)
	assert.Equal(t, http.StatusBadRequest, s.get("/courses/x/sheet").Code)
}

func TestDayViewAndStats(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.upload(s.admin, "roster.csv",
		[]byte(rosterHeader+"7,Noa,Cohen,Math,Sport\n8,Omer,Levi,Art,Music\n")).Code)
	require.Equal(t, http.StatusOK, s.mark(7, 1, "2024-01-01", true).Code)
	require.Equal(t, http.StatusOK, s.mark(7, 4, "2024-01-01", true).Code)
	require.Equal(t, http.StatusOK, s.mark(8, 2, "2024-01-01", false).Code)

	view := decode[models.DayViewResponse](t, s.get("/attendance/2024-01-01/day"))
	assert.Equal(t, 1, view.Counts[models.StatusPresent])
	assert.Equal(t, 1, view.Counts[models.StatusAbsent])
	assert.Empty(t, view.Alerts)

	stats := decode[models.StatsResponse](t, s.get("/stats?date=2024-01-01"))
	assert.Equal(t, models.Ratio{Marked: 3, Present: 2, Percentage: 67}, stats.Overall)
	assert.Len(t, stats.Courses, 4)

	assert.Equal(t, http.StatusBadRequest, s.get("/stats?from=2024-02-01&to=2024-01-01").Code)
	assert.Equal(t, http.StatusBadRequest, s.get("/stats").Code)

	w := s.do(http.MethodGet, "/stats/export?from=2024-01-01&to=2024-01-31", s.admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_2024-01-01_2024-01-31.xlsx")
	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Courses", "Students", "Summary"}, wb.GetSheetList())
	_ = wb.Close()
}
