package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/hcm-campaign-api/api/swagger"
	"github.com/noah-isme/hcm-campaign-api/internal/adapter"
	"github.com/noah-isme/hcm-campaign-api/internal/handler"
	"github.com/noah-isme/hcm-campaign-api/internal/middleware"
	"github.com/noah-isme/hcm-campaign-api/internal/models"
	"github.com/noah-isme/hcm-campaign-api/internal/repository"
	"github.com/noah-isme/hcm-campaign-api/internal/service"
	"github.com/noah-isme/hcm-campaign-api/pkg/cache"
	"github.com/noah-isme/hcm-campaign-api/pkg/clock"
	"github.com/noah-isme/hcm-campaign-api/pkg/config"
	"github.com/noah-isme/hcm-campaign-api/pkg/database"
	"github.com/noah-isme/hcm-campaign-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hcm-campaign-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hcm-campaign-api/pkg/middleware/requestid"
)

// @title HCM Campaign API
// @version 1.0.0
// @description Campaign coordination core: assessment and engagement campaign lifecycles, assignments, conflicts and the unified calendar.
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
		logr.Sugar().Warnw("redis unavailable, caching and analytics disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real{}
	validate := validator.New()
	metrics := service.NewMetrics()

	campaignRepo := repository.NewCampaignRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reconcileRepo := repository.NewReconciliationRepository(db)

	notificationSink := adapter.NewLogNotificationSink(logr)
	analytics := adapter.NewAnalyticsEmitter(redisClient, logr)
	pdfRenderer := adapter.NewPDFRenderer()
	aiGenerator := adapter.NewAIQuestionGenerator(cfg.AI, clk, logr)
	docExtractor := adapter.NewDocumentExtractor()

	conflictSvc := service.NewConflictService(campaignRepo, cfg.Campaigns, logr)
	campaignSvc := service.NewCampaignService(campaignRepo, templateRepo, employeeRepo, conflictSvc, assignmentRepo, clk, cfg.Campaigns, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, campaignRepo, employeeRepo, notificationSink, auditRepo, clk, cfg.Campaigns, cfg.Notifications, logr)
	calendarSvc := service.NewCalendarService(campaignRepo, campaignSvc, conflictSvc, redisClient, clk, cfg.Calendar, logr)
	reconcileSvc := service.NewReconciliationService(reconcileRepo, assignmentSvc, auditRepo, clk, cfg.Reconciliation, cfg.Campaigns, metrics, logr)
	authSvc := service.NewAuthService(cfg.JWT)

	assignmentSvc.StartWorkers(ctx)
	defer assignmentSvc.StopWorkers()
	go reconcileSvc.RunPeriodically(ctx)

	campaignHandler := handler.NewCampaignHandler(campaignSvc, assignmentSvc, pdfRenderer, analytics)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	aiHandler := handler.NewAIHandler(aiGenerator, templateRepo, docExtractor, logr)
	metricsHandler := handler.NewMetricsHandler(metrics, db, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	api.Use(middleware.Tenant())

	manage := middleware.RequireRoles(models.RoleAdmin, models.RoleHRManager)

	campaigns := api.Group("/campaigns/:family")
	{
		campaigns.GET("", campaignHandler.List)
		campaigns.POST("", manage, campaignHandler.Create)
		campaigns.POST("/check-conflicts", manage, campaignHandler.CheckConflicts)
		campaigns.GET("/:id", campaignHandler.Get)
		campaigns.DELETE("/:id", manage, campaignHandler.Delete)
		campaigns.PATCH("/:id/status", manage, campaignHandler.UpdateStatus)
		campaigns.PATCH("/:id/reschedule", manage, campaignHandler.Reschedule)
		campaigns.POST("/:id/notify", manage, campaignHandler.Notify)
		campaigns.GET("/:id/stats", campaignHandler.Stats)
		campaigns.POST("/:id/duplicate", manage, campaignHandler.Duplicate)
		campaigns.POST("/:id/clone", manage, campaignHandler.Clone)
		campaigns.GET("/:id/export/pdf", campaignHandler.ExportPDF)

		campaigns.GET("/:id/assignments", assignmentHandler.ListByCampaign)
		campaigns.POST("/:id/assignments", manage, assignmentHandler.Add)
		campaigns.DELETE("/:id/assignments/:assignmentId", manage, assignmentHandler.Remove)
		campaigns.PATCH("/:id/assignments/:assignmentId/status", assignmentHandler.UpdateStatus)
		campaigns.POST("/:id/assignments/bulk", manage, assignmentHandler.Bulk)
	}

	api.GET("/employees/:employeeId/assignments", assignmentHandler.ListByEmployee)

	calendar := api.Group("/calendar")
	{
		calendar.GET("", calendarHandler.Range)
		calendar.GET("/stats", calendarHandler.Stats)
		calendar.POST("/reschedule", manage, calendarHandler.Reschedule)
		calendar.POST("/check-conflicts", calendarHandler.CheckConflicts)
	}

	ai := api.Group("/ai")
	{
		ai.POST("/generate-questions", manage, aiHandler.GenerateQuestions)
		ai.POST("/extract-document", manage, aiHandler.ExtractDocument)
		ai.GET("/providers", aiHandler.Providers)
		ai.POST("/providers/refresh", manage, aiHandler.RefreshProviders)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
