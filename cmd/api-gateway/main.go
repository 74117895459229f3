package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/plm-registrar/enrollment-api/api/swagger"
	"github.com/plm-registrar/enrollment-api/internal/handler"
	"github.com/plm-registrar/enrollment-api/internal/middleware"
	"github.com/plm-registrar/enrollment-api/internal/repository"
	"github.com/plm-registrar/enrollment-api/internal/service"
	"github.com/plm-registrar/enrollment-api/pkg/cache"
	"github.com/plm-registrar/enrollment-api/pkg/config"
	"github.com/plm-registrar/enrollment-api/pkg/database"
	"github.com/plm-registrar/enrollment-api/pkg/logger"
	corsmiddleware "github.com/plm-registrar/enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/plm-registrar/enrollment-api/pkg/middleware/requestid"
)

// @title Student Enrollment API
// @version 1.0.0
// @description Enrollment workflow for irregular students: eligibility validation, selection building and transactional finalization
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	students := repository.NewStudentRepository(db)
	catalog := repository.NewCatalogRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	selections := repository.NewSelectionRepository(redisClient, cfg.Enrollment.SelectionTTL, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(students, validate, logr, cfg.JWT)
	validationSvc := service.NewValidationService(catalog, students, cfg.Enrollment, logr, metricsSvc)
	selectionSvc := service.NewSelectionService(selections, validationSvc, catalog, logr)
	catalogSvc := service.NewCatalogService(catalog, students, cfg.Enrollment, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, students, selections, cfg.Enrollment, logr, metricsSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(catalogSvc)
	selectionHandler := handler.NewSelectionHandler(selectionSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, cfg.Enrollment.ResetSecret)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.GET("/subjects", subjectHandler.List)
	protected.GET("/subjects/:code", subjectHandler.Detail)

	protected.GET("/selection", selectionHandler.Get)
	protected.POST("/selection/validate", selectionHandler.Validate)
	protected.POST("/selection/items", selectionHandler.Add)
	protected.DELETE("/selection/items", selectionHandler.Remove)
	protected.DELETE("/selection", selectionHandler.Clear)

	protected.GET("/enrollment", enrollmentHandler.Current)
	protected.POST("/enrollment/finalize", enrollmentHandler.Finalize)
	protected.POST("/enrollment/reset", enrollmentHandler.Reset)
	protected.GET("/enrollment/slip", enrollmentHandler.Slip)
	protected.GET("/enrollment/export", enrollmentHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "semester", cfg.Enrollment.CurrentSemester)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
