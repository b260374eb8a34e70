package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/jewellery_backend/appctx"
	"github.com/mmdatafocus/jewellery_backend/branchsync"
	"github.com/mmdatafocus/jewellery_backend/config"
	"github.com/mmdatafocus/jewellery_backend/handlers"
	"github.com/mmdatafocus/jewellery_backend/middlewares"
	"github.com/mmdatafocus/jewellery_backend/models"
	"github.com/mmdatafocus/jewellery_backend/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPort = "8080"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// loadBranch reads the branch identity, generating and persisting a branch
// id on first start.
func loadBranch(ctx context.Context, db *gorm.DB) (appctx.Branch, error) {
	b, err := models.LoadBranch(ctx, db)
	if err != nil {
		return b, err
	}
	if b.BranchId != "" {
		return b, nil
	}
	b.BranchId = uuid.NewString()
	if err := models.SetSetting(ctx, db, models.SettingBranchId, b.BranchId); err != nil {
		return b, err
	}
	log.Printf("generated branch id %s", b.BranchId)
	return b, nil
}

func newSyncScheduler(db *gorm.DB, logger *logrus.Logger, queue *branchsync.Queue, branch appctx.Branch) (*branchsync.Scheduler, error) {
	remote, err := branchsync.NewCloudStoreFromEnv()
	if err != nil {
		return nil, fmt.Errorf("cloud store: %w", err)
	}
	if remote == nil {
		logger.Warn("no cloud store configured; sync cycles will be skipped")
	}
	engine := branchsync.NewEngine(db, logger, queue, remote, branch)
	if n := branchsync.NewPubSubNotifierFromEnv(); n != nil {
		engine.Notifier = n
	}
	engine.Locker = config.GetRedisLock()
	return branchsync.NewScheduler(engine, logger), nil
}

func newRouter(logger *logrus.Logger, branch appctx.Branch, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// The desktop shell talks to localhost; a production deployment must
	// list its origins in CORS_ALLOWED_ORIGINS.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	r.Use(cors.New(corsConfig))

	if config.EnvBoolDefault("RATE_LIMIT_ENABLED", false) && config.GetRedisDB() != nil {
		limit := int64(config.IntFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
		window := time.Duration(config.IntFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
		r.Use(NewRateLimiter(config.GetRedisDB(), limit, window).RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	r.Use(middlewares.BranchMiddleware(branch))

	pushAuth := middlewares.PubSubPushAuthFromEnv()
	if !pushAuth.Configured() {
		logger.Warn("PUBSUB_PUSH_TOKEN and PUBSUB_PUSH_AUDIENCE are unset; /pubsub/sync rejects every push")
	}
	r.POST("/pubsub/sync", middlewares.PubSubPushMiddleware(pushAuth), h.PubSubSync())
	api := r.Group("/api", middlewares.AuthMiddleware("/api/auth/login"))
	h.Register(api)
	r.NoRoute(customNotFoundHandler)
	return r
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "route not found"})
}

func main() {
	port := config.EnvDefault("PORT", defaultPort)
	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedis(sigCtx)

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	if !config.EnvBoolDefault("SKIP_MIGRATIONS", false) {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	branch, err := loadBranch(sigCtx, db)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "settings"}).Fatal(err.Error())
	}
	if branch.CompanyStateCode == "" {
		logger.Warn("company_state_code is not set; every invoice will be taxed as intra-state")
	}

	queue := branchsync.NewQueue(db, logger)
	scheduler, err := newSyncScheduler(db, logger, queue, branch)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "sync"}).Fatal(err.Error())
	}
	if err := scheduler.Start(sigCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "sync"}).Error("sync scheduler not started: " + err.Error())
	}

	h := handlers.New(workflow.NewWorkflow(db, logger, queue), scheduler)
	h.AlertDueWithinDays = config.IntFromEnv("ALERT_DUE_WITHIN_DAYS", 7)
	alertInterval := time.Duration(config.IntFromEnv("ALERT_INTERVAL_MINUTES", 60)) * time.Minute
	if alertInterval > 0 {
		go h.Alerts.RunAlertTicker(appctx.WithBranch(sigCtx, branch), alertInterval, h.AlertDueWithinDays)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(logger, branch, h),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{
		"branch_id": branch.BranchId,
		"port":      port,
	}).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the timers first so no cycle starts while requests drain.
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware counts requests per client IP in a fixed window.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if count == 1 {
		if err := rl.client.Expire(c.Request.Context(), key, rl.window).Err(); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
