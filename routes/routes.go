package routes

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"attendance_app_backend/handlers"
	"attendance_app_backend/ledger"
	"attendance_app_backend/middleware"
	"attendance_app_backend/models"
	"attendance_app_backend/reconcile"
	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
	"attendance_app_backend/store"
)

const (
	requestTimeout = 5 * time.Second
	importTimeout  = time.Minute
)

type Dependencies struct {
	Store          store.Store
	Catalog        *registry.Catalog
	Ledger         *ledger.Ledger
	Engine         *reconcile.Engine
	Importer       *roster.Importer
	Mapping        roster.Mapping
	MaxUploadBytes int64
	Auth           gin.HandlerFunc
	Logger         *slog.Logger
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine, d Dependencies) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(d.Store)
	courseHandler := handlers.NewCourseHandler(d.Catalog, d.Engine, d.Logger)
	studentHandler := handlers.NewStudentHandler(d.Store, d.Catalog, d.Importer, d.Mapping, d.MaxUploadBytes, d.Logger)
	attendanceHandler := handlers.NewAttendanceHandler(d.Ledger, d.Engine, d.Logger)
	statsHandler := handlers.NewStatsHandler(d.Engine, d.Logger)

	r.Use(middleware.RequestID())

	// Public routes
	r.GET("/health", healthHandler.HealthCheck)

	staff := middleware.RequireRole(models.RoleStaff)
	admin := middleware.RequireRole(models.RoleAdmin)

	// Protected routes
	protected := r.Group("/")
	protected.Use(d.Auth)
	{
		short := protected.Group("/", middleware.Timeout(requestTimeout))

		// Course routes
		short.GET("/courses", staff, courseHandler.GetCourses)
		short.GET("/courses/registry", staff, courseHandler.GetRegistry)
		short.GET("/courses/:id/sheet", staff, courseHandler.GetCourseSheet)

		// Student routes
		short.GET("/students", staff, studentHandler.GetStudents)
		protected.POST("/students/import", middleware.Timeout(importTimeout), admin, studentHandler.ImportStudents)

		// Attendance routes
		short.POST("/attendance", staff, attendanceHandler.MarkPresence)
		short.GET("/attendance/:date", staff, attendanceHandler.GetAttendanceForDate)
		short.GET("/attendance/:date/alerts", staff, attendanceHandler.GetAlerts)
		short.GET("/attendance/:date/day", staff, attendanceHandler.GetDayView)

		// Statistics routes
		short.GET("/stats", staff, statsHandler.GetStats)
		short.GET("/stats/export", admin, statsHandler.ExportStats)
	}
}
