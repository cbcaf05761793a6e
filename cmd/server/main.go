// cmd/server/main.go - AbiaHub Civic Engagement Backend Server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"abiahub/internal/config"
	"abiahub/internal/database"
	"abiahub/internal/handlers"
	"abiahub/internal/middleware"
	"abiahub/internal/models"
	"abiahub/internal/services"
	"abiahub/pkg/auth"
	"abiahub/pkg/validator"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	serverStartTime = time.Now()

	appVersion = "1.0.0"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func main() {
	cfg := config.Load()

	setupLogging(cfg)

	logrus.WithFields(logrus.Fields{
		"version":     appVersion,
		"build":       buildTime,
		"commit":      gitCommit,
		"environment": cfg.Environment,
	}).Info("starting AbiaHub backend")

	db, err := database.NewMongoDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("error disconnecting from MongoDB")
		}
	}()

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateIndexes(indexCtx); err != nil {
		logrus.WithError(err).Warn("failed to create some indexes")
	}
	indexCancel()

	validator.Init()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiration)*time.Hour)

	collections := getCollections(db.Database)

	// Services. The notification service is shared by most of the others.
	notificationService := services.NewNotificationService(db.Database, cfg)
	auditService := services.NewAuditService(db.Database)
	fileService, err := services.NewFileService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to prepare upload directory")
	}
	flutterwaveService := services.NewFlutterwaveService(cfg)
	verifyMeService := services.NewVerifyMeService(cfg)
	atService := services.NewAfricasTalkingService(cfg, db.Database)
	rewardService := services.NewRewardService(db.Database, cfg, notificationService, atService, auditService)
	statsService := services.NewStatsService(db.Database)

	// WebSocket hub. Real-time notification delivery goes through it.
	wsHandler := handlers.NewWebSocketHandler(jwtManager)
	go wsHandler.StartHub()
	notificationService.Broadcast = wsHandler.SendNotification

	rateLimiter := middleware.NewRateLimiter(cfg)
	defer rateLimiter.Stop()

	cache := middleware.NewResponseCache()

	h := &handlerSet{
		auth:         handlers.NewAuthHandler(collections["users"], jwtManager),
		users:        handlers.NewUserHandler(collections["users"]),
		reports:      handlers.NewReportHandler(collections["reports"], collections["users"], notificationService, rewardService, auditService, wsHandler, cache, cfg),
		proposals:    handlers.NewProposalHandler(collections["proposals"], notificationService, rewardService, auditService, cache, cfg),
		services:     handlers.NewServiceRequestHandler(collections["services"], collections["service_requests"], notificationService, auditService, cache),
		payments:     handlers.NewPaymentHandler(collections["service_requests"], collections["reports"], collections["users"], flutterwaveService, auditService, notificationService),
		verification: handlers.NewVerificationHandler(collections["users"], verifyMeService),
		media:        handlers.NewMediaHandler(fileService),
		notification: handlers.NewNotificationHandler(collections["notifications"], collections["device_tokens"]),
		ussd:         handlers.NewUSSDHandler(atService),
		stats:        handlers.NewStatsHandler(statsService, collections["users"]),
		audit:        handlers.NewAuditHandler(collections["audit_logs"]),
		location:     handlers.NewLocationHandler(collections["lgas"], collections["wards"], collections["landmarks"]),
		websocket:    wsHandler,
	}

	router := setupRouter(cfg, h, jwtManager, rateLimiter, cache)

	// Reward disbursement runs alongside the server. cmd/rewards runs the
	// same loop as a standalone worker when the server should not own it.
	rewardCtx, rewardCancel := context.WithCancel(context.Background())
	defer rewardCancel()
	go rewardService.Run(rewardCtx, cfg.RewardBatchSize, time.Duration(cfg.RewardBatchDelaySec)*time.Second)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rewardCancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("server forced to shutdown")
	} else {
		logrus.Info("server stopped gracefully")
	}
}

type handlerSet struct {
	auth         *handlers.AuthHandler
	users        *handlers.UserHandler
	reports      *handlers.ReportHandler
	proposals    *handlers.ProposalHandler
	services     *handlers.ServiceRequestHandler
	payments     *handlers.PaymentHandler
	verification *handlers.VerificationHandler
	media        *handlers.MediaHandler
	notification *handlers.NotificationHandler
	ussd         *handlers.USSDHandler
	stats        *handlers.StatsHandler
	audit        *handlers.AuditHandler
	location     *handlers.LocationHandler
	websocket    *handlers.WebSocketHandler
}

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		gin.SetMode(gin.DebugMode)
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func getCollections(db *mongo.Database) map[string]*mongo.Collection {
	return map[string]*mongo.Collection{
		"users":            db.Collection("users"),
		"reports":          db.Collection("reports"),
		"proposals":        db.Collection("proposals"),
		"services":         db.Collection("services"),
		"service_requests": db.Collection("service_requests"),
		"notifications":    db.Collection("notifications"),
		"device_tokens":    db.Collection("device_tokens"),
		"audit_logs":       db.Collection("audit_logs"),
		"lgas":             db.Collection("lgas"),
		"wards":            db.Collection("wards"),
		"landmarks":        db.Collection("landmarks"),
	}
}

var objectIDSegment = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// isDetailPath distinguishes detail endpoints (/api/v1/reports/<id>) from
// list endpoints like /reports/nearby for cache TTL purposes.
func isDetailPath(path string) bool {
	return objectIDSegment.MatchString(path[strings.LastIndex(path, "/")+1:])
}

func setupRouter(
	cfg *config.Config,
	h *handlerSet,
	jwtManager *auth.JWTManager,
	rateLimiter *middleware.RateLimiter,
	cache *middleware.ResponseCache,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Uploaded media is served directly.
	router.Static("/uploads", cfg.UploadDir)

	// WebSocket endpoint authenticates via token query parameter.
	router.GET("/ws", h.websocket.HandleWebSocket)

	setupHealthRoutes(router, h.websocket)

	// Gateway callbacks sit outside the rate limiter: Africa's Talking
	// funnels every USSD session through a handful of IPs.
	callbacks := router.Group("/api/v1")
	{
		callbacks.POST("/ussd/callback", h.ussd.HandleCallback)
		callbacks.POST("/sms/inbound", h.ussd.HandleInboundSMS)
	}

	v1 := router.Group("/api/v1")
	// Optional auth runs first so the rate limiter can apply the
	// authenticated quota, and the cache can skip signed-in users.
	v1.Use(middleware.OptionalAuthMiddleware(jwtManager))
	if cfg.RateLimitEnabled {
		v1.Use(rateLimiter.Middleware())
	}
	{
		setupPublicRoutes(v1, h, cache)
		setupProtectedRoutes(v1, h, jwtManager)
		setupOfficialRoutes(v1, h, jwtManager)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router
}

func setupHealthRoutes(router *gin.Engine, wsHandler *handlers.WebSocketHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(serverStartTime).String(),
			"version":   appVersion,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ready": true})
	})

	router.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alive": true})
	})
}

func setupPublicRoutes(v1 *gin.RouterGroup, h *handlerSet, cache *middleware.ResponseCache) {
	v1.POST("/auth/register", h.auth.Register)
	v1.POST("/auth/login", h.auth.Login)

	// Read-only public content goes through the response cache.
	cached := v1.Group("")
	cached.Use(cache.Middleware(isDetailPath))
	{
		cached.GET("/reports", h.reports.GetReports)
		cached.GET("/reports/nearby", h.reports.GetNearbyReports)
		cached.GET("/reports/:id", h.reports.GetReport)
		cached.GET("/reports/:id/similar", h.reports.GetSimilarReports)

		cached.GET("/proposals", h.proposals.GetProposals)
		cached.GET("/proposals/:id", h.proposals.GetProposal)

		cached.GET("/services", h.services.ListServices)

		cached.GET("/lgas", h.location.ListLGAs)
		cached.GET("/lgas/:id/wards", h.location.ListWards)
		cached.GET("/lgas/:id/landmarks", h.location.ListLandmarks)
	}
}

func setupProtectedRoutes(v1 *gin.RouterGroup, h *handlerSet, jwtManager *auth.JWTManager) {
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager))

	protected.POST("/auth/refresh", h.auth.RefreshToken)
	protected.PUT("/auth/password", h.auth.ChangePassword)

	protected.GET("/users/me", h.users.GetProfile)
	protected.PUT("/users/me", h.users.UpdateProfile)

	protected.POST("/reports", h.reports.CreateReport)
	protected.GET("/reports/my", h.reports.GetMyReports)
	protected.PUT("/reports/:id", h.reports.UpdateReport)
	protected.POST("/reports/:id/upvote", h.reports.UpvoteReport)
	protected.DELETE("/reports/:id/upvote", h.reports.RemoveUpvote)
	protected.POST("/reports/:id/comments", h.reports.AddComment)
	protected.POST("/reports/:id/subscribe", h.reports.SubscribeToReport)

	protected.POST("/proposals", h.proposals.CreateProposal)
	protected.POST("/proposals/:id/submit", h.proposals.SubmitProposal)
	protected.POST("/proposals/:id/vote", h.proposals.VoteProposal)

	protected.POST("/services/requests", h.services.Apply)
	protected.GET("/services/requests/my", h.services.GetMyRequests)

	protected.POST("/payments/initialize", h.payments.InitializePayment)
	protected.POST("/payments/verify", h.payments.VerifyPayment)

	protected.POST("/verification/nin", h.verification.VerifyNIN)
	protected.POST("/verification/bvn", h.verification.VerifyBVN)

	protected.POST("/media/images", h.media.UploadImage)
	protected.POST("/media/videos", h.media.UploadVideo)
	protected.POST("/media/voice", h.media.UploadVoiceNote)

	protected.GET("/notifications", h.notification.GetNotifications)
	protected.PUT("/notifications/:id/read", h.notification.MarkAsRead)
	protected.PUT("/notifications/read-all", h.notification.MarkAllAsRead)
	protected.POST("/devices", h.notification.RegisterDevice)
	protected.DELETE("/devices", h.notification.UnregisterDevice)
}

func setupOfficialRoutes(v1 *gin.RouterGroup, h *handlerSet, jwtManager *auth.JWTManager) {
	official := v1.Group("")
	official.Use(middleware.AuthMiddleware(jwtManager))

	official.PUT("/reports/:id/status",
		middleware.RequirePermission(models.PermissionUpdateReportStatus),
		h.reports.UpdateReportStatus)
	official.PUT("/reports/:id/assign",
		middleware.RequirePermission(models.PermissionAssignReports),
		h.reports.AssignReport)

	official.PUT("/proposals/:id/review",
		middleware.RequirePermission(models.PermissionReviewProposals),
		h.proposals.ReviewProposal)

	official.GET("/services/requests",
		middleware.RequirePermission(models.PermissionProcessServiceReqs),
		h.services.GetRequests)
	official.PUT("/services/requests/:id/status",
		middleware.RequirePermission(models.PermissionProcessServiceReqs),
		h.services.UpdateRequestStatus)
	official.POST("/services",
		middleware.RequirePermission(models.PermissionManageServices),
		h.services.CreateService)

	official.GET("/stats/reports",
		middleware.RequirePermission(models.PermissionViewStatistics),
		h.stats.GetReportStats)
	official.GET("/stats/rewards",
		middleware.RequirePermission(models.PermissionViewStatistics),
		h.stats.GetRewardStats)

	official.GET("/audit",
		middleware.RequirePermission(models.PermissionViewAuditLog),
		h.audit.GetAuditLogs)

	admin := official.Group("")
	admin.Use(middleware.RequirePermission(models.PermissionManageUsers))
	{
		admin.GET("/users", h.users.ListUsers)
		admin.PUT("/users/:id/role", h.users.UpdateUserRole)
		admin.PUT("/users/:id/block", h.users.BlockUser)
	}
}
