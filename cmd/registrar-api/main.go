package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/registrar-api/api/swagger"
	"github.com/campushq/registrar-api/internal/handler"
	"github.com/campushq/registrar-api/internal/middleware"
	"github.com/campushq/registrar-api/internal/models"
	"github.com/campushq/registrar-api/internal/repository"
	"github.com/campushq/registrar-api/internal/service"
	"github.com/campushq/registrar-api/pkg/cache"
	"github.com/campushq/registrar-api/pkg/config"
	"github.com/campushq/registrar-api/pkg/database"
	"github.com/campushq/registrar-api/pkg/logger"
	corsmiddleware "github.com/campushq/registrar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/registrar-api/pkg/middleware/requestid"
)

// @title Registrar API
// @version 1.0.0
// @description Course registration and academic records service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled)
	}

	validate := validator.New()

	identityRepo := repository.NewIdentityRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(identityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	registrationSvc := service.NewRegistrationService(enrollmentRepo, sectionRepo, cacheSvc, validate, logr)
	reportingSvc := service.NewReportingService(reportRepo, cacheSvc, cfg.Reports.ExportMaxRows, logr)
	profileSvc := service.NewProfileService(identityRepo, validate, logr)
	catalogSvc := service.NewCatalogService(courseRepo, sectionRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, metricsSvc)
	reportHandler := handler.NewReportHandler(reportingSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.GET("/me", authHandler.Me)
		authed.GET("/courses", catalogHandler.ListCourses)
		authed.GET("/courses/:id", catalogHandler.GetCourse)
		authed.GET("/sections", catalogHandler.ListSections)
		authed.GET("/sections/:id", catalogHandler.GetSection)
		authed.GET("/departments", catalogHandler.ListDepartments)
	}

	student := api.Group("", middleware.JWT(authSvc), middleware.RequireRole(models.RoleStudent))
	{
		student.GET("/registrations", registrationHandler.List)
		student.POST("/registrations", registrationHandler.Register)
		student.POST("/registrations/:id/drop", registrationHandler.Drop)
	}

	instructor := api.Group("", middleware.JWT(authSvc), middleware.RequireRole(models.RoleInstructor))
	{
		instructor.GET("/sections/:id/roster", registrationHandler.Roster)
		instructor.PUT("/sections/:id/grades", registrationHandler.BulkSetGrades)
		instructor.PUT("/enrollments/:id/grade", registrationHandler.SetGrade)
		instructor.POST("/enrollments/:id/remove", registrationHandler.Remove)
	}

	admin := api.Group("", middleware.JWT(authSvc), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/profiles/:role/:id", profileHandler.Get)
		admin.PUT("/profiles/:role/:id", profileHandler.Update)
		admin.POST("/advisors/assign", profileHandler.AssignAdvisors)
		admin.POST("/courses/:id/prerequisites", catalogHandler.AddPrerequisite)
		admin.DELETE("/courses/:id/prerequisites/:prereq_id", catalogHandler.RemovePrerequisite)
		admin.GET("/reports/departments/gpa", reportHandler.DepartmentGPA)
		admin.GET("/reports/departments/gpa/export", reportHandler.ExportDepartmentGPA)
		admin.GET("/reports/departments/students", reportHandler.StudentCounts)
		admin.GET("/reports/courses/:id/gpa", reportHandler.CourseGPA)
		admin.GET("/reports/courses/ranking", reportHandler.CourseRanking)
		admin.GET("/reports/courses/ranking/export", reportHandler.ExportCourseRanking)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
