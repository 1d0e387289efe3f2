package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/campus-registrar-api/api/swagger"
	"github.com/noah-isme/campus-registrar-api/internal/handler"
	"github.com/noah-isme/campus-registrar-api/internal/middleware"
	"github.com/noah-isme/campus-registrar-api/internal/models"
	"github.com/noah-isme/campus-registrar-api/internal/repository"
	"github.com/noah-isme/campus-registrar-api/internal/service"
	"github.com/noah-isme/campus-registrar-api/pkg/cache"
	"github.com/noah-isme/campus-registrar-api/pkg/config"
	"github.com/noah-isme/campus-registrar-api/pkg/database"
	"github.com/noah-isme/campus-registrar-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-registrar-api/pkg/middleware/requestid"
)

// @title Campus Registrar API
// @version 1.0.0
// @description Section registration, waitlists, and gradebooks
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, maintenance flag reads go to the database", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	settingsRepo := repository.NewSettingsRepository(db, redisClient, cfg.Maintenance.CacheTTL)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration)
	enrollmentSvc := service.NewEnrollmentService(
		enrollmentRepo, sectionRepo, studentRepo, courseRepo, settingsRepo, metricsSvc,
		cfg.Registration.MaxTermCredits, cfg.Registration.EnforcePrerequisites,
		validate, logr)
	gradebookSvc := service.NewGradebookService(enrollmentRepo, sectionRepo, facultyRepo, settingsRepo, validate, logr)
	sectionSvc := service.NewSectionService(sectionRepo, enrollmentRepo, courseRepo, facultyRepo, validate, logr)
	maintenanceSvc := service.NewMaintenanceService(settingsRepo, logr)
	catalogSvc := service.NewCatalogService(studentRepo, courseRepo, facultyRepo, validate, logr)
	exportSvc := service.NewExportService(sectionRepo, enrollmentRepo, facultyRepo, logr)

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	gradebookHandler := handler.NewGradebookHandler(gradebookSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	maintenanceHandler := handler.NewMaintenanceHandler(maintenanceSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	sections := api.Group("/sections")
	{
		sections.GET("", sectionHandler.List)
		sections.GET("/:id", sectionHandler.Get)
		sections.GET("/:id/availability", sectionHandler.Availability)
		sections.POST("", adminOnly, sectionHandler.Create)
		sections.PUT("/:id", adminOnly, sectionHandler.Update)
		sections.DELETE("/:id", adminOnly, sectionHandler.Delete)
		sections.PUT("/:id/instructor", adminOnly, sectionHandler.AssignInstructor)
		sections.GET("/:id/roster", staffOnly, sectionHandler.Roster)
		sections.GET("/:id/enrollments", staffOnly, enrollmentHandler.BySection)

		sections.PUT("/:id/assessments", staffOnly, gradebookHandler.DefineAssessments)
		sections.POST("/:id/scores", staffOnly, gradebookHandler.RecordScore)
		sections.POST("/:id/grades/:studentId/final", staffOnly, gradebookHandler.ComputeFinal)
		sections.GET("/:id/grades/stats", staffOnly, gradebookHandler.Stats)

		if cfg.Exports.Enabled {
			sections.GET("/:id/export/roster", staffOnly, exportHandler.Roster)
			sections.GET("/:id/export/gradebook", staffOnly, exportHandler.Gradebook)
		}
	}

	students := api.Group("/students")
	{
		students.GET("", staffOnly, catalogHandler.ListStudents)
		students.POST("", adminOnly, catalogHandler.CreateStudent)
		students.PUT("/:id", adminOnly, catalogHandler.UpdateStudent)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", catalogHandler.ListCourses)
		courses.POST("", adminOnly, catalogHandler.CreateCourse)
		courses.POST("/:id/prerequisites", adminOnly, catalogHandler.AddPrerequisite)
	}

	instructors := api.Group("/faculty")
	{
		instructors.GET("", staffOnly, catalogHandler.ListFaculty)
		instructors.POST("", adminOnly, catalogHandler.CreateFaculty)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.POST("/register", enrollmentHandler.Register)
		enrollments.POST("/drop", enrollmentHandler.Drop)
		enrollments.GET("/mine", middleware.RequireRoles(models.RoleStudent), enrollmentHandler.Mine)
	}

	api.GET("/maintenance", maintenanceHandler.Status)
	api.PUT("/maintenance", adminOnly, maintenanceHandler.Set)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
