package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/quillhub/moderation-api/api/swagger"
	"github.com/quillhub/moderation-api/internal/handler"
	"github.com/quillhub/moderation-api/internal/middleware"
	"github.com/quillhub/moderation-api/internal/models"
	"github.com/quillhub/moderation-api/internal/repository"
	"github.com/quillhub/moderation-api/internal/service"
	"github.com/quillhub/moderation-api/pkg/cache"
	"github.com/quillhub/moderation-api/pkg/config"
	"github.com/quillhub/moderation-api/pkg/database"
	"github.com/quillhub/moderation-api/pkg/logger"
	"github.com/quillhub/moderation-api/pkg/mailer"
	corsmiddleware "github.com/quillhub/moderation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/quillhub/moderation-api/pkg/middleware/requestid"
	"github.com/quillhub/moderation-api/pkg/mirror"
	"github.com/quillhub/moderation-api/pkg/storage"
)

// @title QuillHub Moderation API
// @version 1.0.0
// @description Review pipeline for articles, podcasts and edit requests.
// @BasePath /
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, queue cache and push channel disabled", zap.Error(err))
		redisClient = nil
	}

	assetStore, err := storage.NewLocalAssetStore(cfg.Assets.StorageDir)
	if err != nil {
		logr.Fatal("failed to init asset store", zap.Error(err))
	}

	contentRepo := repository.NewContentRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "moderation-api",
	})

	notificationSvc := service.NewNotificationService(notificationRepo, redisClient, "notifications", logr)
	mailSvc := mailer.New(cfg.Mail, logr)
	mirrorClient := mirror.New(cfg.Mirror, logr)

	dispatcher := service.NewEffectDispatcher(cfg.Effects, notificationSvc, mailSvc, assetStore, mirrorClient, contributionRepo, userRepo, logr).
		WithMetrics(metricsSvc)

	reviewSvc := service.NewReviewService(contentRepo, commentRepo, userRepo, dispatcher, logr).
		WithCache(cacheSvc)
	contentSvc := service.NewContentService(contentRepo, userRepo, dispatcher, logr, cfg.Review.EditRequestOpenLimit).
		WithCache(cacheSvc)
	contributionSvc := service.NewContributionService(contributionRepo, logr)
	sweepSvc := service.NewSweepService(contentRepo, reviewSvc, cfg.Review, logr).
		WithMetrics(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()
	sweepSvc.Start(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc, metricsSvc)
	contributionHandler := handler.NewContributionHandler(contributionSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	adminHandler := handler.NewAdminHandler(sweepSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	api := r.Group("/", middleware.JWT(authSvc))
	{
		api.POST("/articles", contentHandler.SubmitArticle)
		api.POST("/podcasts", contentHandler.SubmitPodcast)
		api.POST("/edit-requests", contentHandler.SubmitEditRequest)

		api.GET("/content", contentHandler.List)
		api.GET("/content/queue", middleware.RequireRoles(models.RoleAdmin, models.RoleModerator), contentHandler.Queue)
		api.GET("/content/inbox", middleware.RequireRoles(models.RoleAdmin, models.RoleModerator), contentHandler.Inbox)
		api.GET("/content/:id", contentHandler.Get)
		api.GET("/content/:id/comments", reviewHandler.Comments)

		moderate := api.Group("/content/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleModerator))
		{
			moderate.POST("/claim", reviewHandler.Claim)
			moderate.POST("/feedback", reviewHandler.Feedback)
			moderate.POST("/publish", reviewHandler.Publish)
			moderate.POST("/discard", reviewHandler.Discard)
			moderate.POST("/unassign", reviewHandler.Unassign)
		}
		api.POST("/content/:id/revise", reviewHandler.Revise)

		api.GET("/contributions/me", contributionHandler.Me)
		api.GET("/contributions/me/export", contributionHandler.Export)
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)

		admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/sweep", middleware.Audit(userRepo, models.AuditActionSweep, "admin"), adminHandler.TriggerSweep)
			admin.GET("/metrics", metricsHandler.Snapshot)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
