package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"attendance_app_backend/config"
	"attendance_app_backend/db"
	"attendance_app_backend/docstore"
	"attendance_app_backend/ledger"
	"attendance_app_backend/middleware"
	"attendance_app_backend/reconcile"
	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
	"attendance_app_backend/routes"
	"attendance_app_backend/store"
	"attendance_app_backend/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found") // Non-fatal in production
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	ctx := context.Background()

	if cfg.TelemetryEnabled {
		otelShutdown, err := telemetry.SetupOTelSDK(ctx)
		if err != nil {
			log.Fatalf("OpenTelemetry setup failed: %v", err)
		}
		defer otelShutdown(context.Background())
	}
	logger := telemetry.NewLogger(cfg.TelemetryEnabled)
	slog.SetDefault(logger)

	catalogFile, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("Error loading course catalog: %v", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Error opening store: %v", err)
	}
	defer st.Close(context.Background())

	catalog := registry.NewCatalog(st, cfg.CourseMode,
		catalogFile.Lists(cfg.UnknownCoursePolicy == roster.Fallback), logger)
	if err := catalog.Ensure(ctx, cfg.ReseedCourses); err != nil {
		log.Fatalf("Error preparing course registry: %v", err)
	}
	info := catalog.Info()
	logger.Info("course registry ready", "mode", info.Mode, "version", info.Version, "courses", info.Courses, "drift", info.Drift)

	attendance := ledger.New(st)
	engine := reconcile.NewEngine(st, attendance, catalog)
	importer := roster.NewImporter(st, catalog, catalogFile.Policy(cfg), logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := gin.Default()

	// Setup CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
		middleware.RequestIDHeader,
	}
	corsConfig.AllowMethods = []string{
		"GET",
		"POST",
	}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Content-Disposition"}
	r.Use(cors.New(corsConfig))

	auth := middleware.AuthMiddleware([]byte(cfg.JWTSecret), logger)
	if cfg.AuthDisabled {
		logger.Warn("authentication is disabled, every request is treated as admin")
		auth = middleware.DisabledAuth()
	}

	// Setup routes
	routes.SetupRoutes(r, routes.Dependencies{
		Store:          st,
		Catalog:        catalog,
		Ledger:         attendance,
		Engine:         engine,
		Importer:       importer,
		Mapping:        catalogFile.Mapping(),
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		Auth:           auth,
		Logger:         logger,
	})

	// Run server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: otelhttp.NewHandler(r, "attendance"),
	}

	go func() {
		logger.Info("listening", "port", cfg.ServerPort, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		st, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
		return st, nil
	case db.DriverPostgres, db.DriverSQLite:
		conn, err := db.Initialize(ctx, cfg.Database())
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		return db.NewStore(conn, cfg.DBDriver), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
