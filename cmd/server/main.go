package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"design-review-server/internal/annotation"
	"design-review-server/internal/auth"
	"design-review-server/internal/config"
	"design-review-server/internal/db"
	"design-review-server/internal/logger"
	"design-review-server/internal/metrics"
	"design-review-server/internal/middleware"
	"design-review-server/internal/resync"
	"design-review-server/internal/review"
	"design-review-server/internal/room"
	"design-review-server/internal/worker"
	"design-review-server/redis"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := &config.AppConfig

	zapLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	// Connect to database
	db.ConnectDb()
	defer db.CloseDb()

	// Migrate database schema
	db.Migrate()

	if cfg.Environment == "development" {
		db.SeedData()
	}

	// Initialize cache
	cache := redis.NewCache(cfg.RedisAddress)
	defer cache.Close()

	metricsSvc := metrics.NewService()
	pool := worker.NewWorkerPool(cfg.WorkerPoolSize, zapLogger)

	// Room registry and broadcaster
	registry := room.NewRegistry()
	hub := room.NewHub(registry, zapLogger, metricsSvc)
	go hub.Run()

	// Initialize repositories
	annotationRepo := annotation.NewRepository(db.AppDb)
	reviewRepo := review.NewRepository(db.AppDb)

	// Initialize services; the review service is the single mutation gate
	reviewService := review.NewService(reviewRepo, hub, cache, pool)
	annotationService := annotation.NewService(annotationRepo, reviewService, hub, cache, pool)
	resyncService := resync.NewService(annotationService, reviewService)
	shareService := auth.NewShareService(db.AppDb, cfg.JWTSecret)

	// Initialize handlers
	annotationHandler := annotation.NewHandler(annotationService)
	reviewHandler := review.NewHandler(reviewService)
	resyncHandler := resync.NewHandler(resyncService)
	authHandler := auth.NewHandler(shareService)
	roomHandler := room.NewHandler(
		hub,
		cfg.Environment,
		cfg.FrontendAddress,
		cfg.WSSendBuffer,
		cfg.WSPongWait,
		zapLogger,
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware(zapLogger))
	router.Use(middleware.Metrics(metricsSvc))
	router.Use(middleware.ErrorHandler(zapLogger))

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if cfg.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{cfg.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	authMw := &middleware.Auth{
		JWTSecret:      cfg.JWTSecret,
		InternalSecret: cfg.InternalSecret,
	}

	// Annotation store routes
	router.POST("/annotations", authMw.AuthMiddleware(), annotationHandler.Create)
	router.POST("/annotations/reply", authMw.AuthMiddleware(), annotationHandler.AddReply)
	router.PUT("/annotations/status", authMw.AuthMiddleware(), annotationHandler.SetStatus)
	router.DELETE("/annotations/:id", authMw.AuthMiddleware(), annotationHandler.Delete)
	router.GET("/annotations", authMw.AuthMiddleware(), annotationHandler.List)

	// Review workflow routes
	router.POST("/projects/:id/approve", authMw.AuthMiddleware(), reviewHandler.Approve)
	router.POST("/projects/:id/submit", authMw.AuthMiddleware(), authMw.RequireRole("operator"), reviewHandler.Submit)
	router.GET("/projects/:id/status", authMw.AuthMiddleware(), reviewHandler.ShowStatus)
	router.GET("/projects/:id/resync", authMw.AuthMiddleware(), resyncHandler.Show)

	// Review link routes
	router.POST("/reviews/:id/link", authMw.AuthMiddleware(), authMw.RequireRole("operator"), authHandler.CreateLink)
	router.POST("/reviews/token", authHandler.ExchangeToken)

	// Routes for trusted collaborators (project management, file storage),
	// guarded by the shared internal secret instead of a user token
	internalRoutes := router.Group("/internal", authMw.InternalAuthMiddleware())
	internalRoutes.GET("/projects/:id/status", reviewHandler.ShowStatus)
	internalRoutes.GET("/projects/:id/resync", resyncHandler.Show)

	// Push channel
	router.GET("/ws", authMw.AuthMiddleware(), roomHandler.ServeWS)

	// Operational endpoints
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	// Server configuration
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		zapLogger.Info("server listening", zap.String("port", cfg.ServerPort))
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zapLogger.Warn("server shutdown error", zap.Error(err))
	}

	hub.Stop()
	pool.Shutdown()

	zapLogger.Info("server shutdown complete")
}
