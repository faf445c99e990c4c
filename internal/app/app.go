package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"uploadgate/database"
	"uploadgate/internal/config"
	"uploadgate/internal/dispatch"
	"uploadgate/internal/handlers"
	"uploadgate/internal/logger"
	"uploadgate/internal/middleware"
	"uploadgate/internal/repositories"
	"uploadgate/internal/routes"
	"uploadgate/internal/services"
	"uploadgate/internal/storage"
	"uploadgate/live"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}
	logger.Info("Migrations applied")

	ginRouter := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	gateway, err := storage.NewMinioGateway(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKey:       cfg.Storage.AccessKey,
		SecretKey:       cfg.Storage.SecretKey,
		Region:          cfg.Storage.Region,
		UseSSL:          cfg.Storage.UseSSL,
		NotificationARN: cfg.Webhook.NotificationARN,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage gateway", "error", err)
	}
	logger.Info("Storage gateway initialized", "endpoint", cfg.Storage.Endpoint)

	groupRepo := repositories.NewGroupRepository(gormDB)
	sessionRepo := repositories.NewSessionRepository(gormDB)
	partRepo := repositories.NewPartRepository(gormDB)

	liveManager := live.NewManager()

	var dispatcher dispatch.Dispatcher
	if cfg.Dispatch.Endpoint != "" {
		dispatcher = dispatch.NewHTTPDispatcher(cfg.Dispatch.Endpoint)
		logger.Info("Job dispatch enabled", "endpoint", cfg.Dispatch.Endpoint)
	} else {
		dispatcher = dispatch.NewLogDispatcher()
		logger.Warn("DISPATCH_ENDPOINT not set, jobs are logged only")
	}

	uploadService := services.NewUploadService(
		groupRepo, sessionRepo, partRepo,
		gateway, dispatcher, liveManager, cfg,
	)
	webhookService := services.NewWebhookService(
		sessionRepo, groupRepo, dispatcher, liveManager,
	)

	appHandlers := &routes.AppHandlers{
		UploadHandler:  handlers.NewUploadHandler(uploadService),
		WebhookHandler: handlers.NewWebhookHandler(webhookService, cfg.Webhook.AuthToken),
	}
	liveHandler := live.NewHandler(liveManager, uploadService)

	ginRouter := initializeGinRouter()
	routes.RegisterRoutes(ginRouter, appHandlers, liveHandler)

	return ginRouter
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}
