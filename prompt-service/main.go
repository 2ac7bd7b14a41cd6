package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"promptmaker-backend/prompt-service/handlers"
	"promptmaker-backend/prompt-service/services"
	"promptmaker-backend/shared/config"
	"promptmaker-backend/shared/database"
	"promptmaker-backend/shared/logger"
	utils "promptmaker-backend/shared/utils/auth"
	"promptmaker-backend/shared/utils/cache"
	"promptmaker-backend/shared/utils/ratelimit"
	"promptmaker-backend/shared/utils/resettoken"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.LogMode != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer database.CloseDatabase()

	// Redis is optional: without it the limiter and token store run in memory
	cacheManager := cache.NewCacheManager(cache.NewRedisClient(cfg))
	var redisClient *redis.Client
	if err := cacheManager.TestConnection(ctx); err != nil {
		logger.Log.Warn("redis unavailable, using in-memory backends", zap.Error(err))
		cacheManager.Close()
		cacheManager = nil
	} else {
		redisClient = cacheManager.Client()
		defer cacheManager.Close()
	}

	limiter := ratelimit.NewLimiter(newCounter(redisClient), rateLimitConfig(cfg))

	resetStore := newResetStore(cfg, redisClient)
	resettoken.StartSweeper(ctx, resetStore, time.Duration(cfg.GetResetTokenSweepMinutes())*time.Minute, logger.Log)

	avatars, err := services.NewAvatarService(ctx, cfg)
	if err != nil {
		logger.Log.Warn("avatar storage unavailable, uploads disabled", zap.Error(err))
		avatars = nil
	}

	feed := services.NewFeedHub(cfg.FrontendURL)
	go feed.Run(ctx)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		database.GetDB(),
		resetStore,
		utils.NewEmailService(cfg),
		avatars,
		time.Duration(cfg.GetResetTokenTTLMinutes())*time.Minute,
	)
	promptHandler := handlers.NewPromptHandler(database.GetDB(), cacheManager, feed)

	router := setupRouter(routerDeps{
		auth:        authHandler,
		prompts:     promptHandler,
		feed:        feed,
		limiter:     limiter,
		frontendURL: cfg.FrontendURL,
		health:      healthCheck(cacheManager),
	})

	server := &http.Server{
		Addr:              ":" + servicePort(cfg.PromptServiceURL),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("prompt service starting",
			zap.String("addr", server.Addr),
			zap.String("rate_limit_policy", limiter.Config().Policy.String()),
			zap.String("reset_token_backend", cfg.ResetTokenBackend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down prompt service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func rateLimitConfig(cfg *config.Config) ratelimit.Config {
	policy := ratelimit.FailOpen
	if !cfg.RateLimitFailOpen {
		policy = ratelimit.FailClosed
	}
	return ratelimit.Config{
		Max:     cfg.GetRateLimitMaxRequests(),
		Window:  time.Duration(cfg.GetRateLimitWindowSeconds()) * time.Second,
		Message: cfg.RateLimitMessage,
		Timeout: time.Duration(cfg.GetRateLimitTimeoutMillis()) * time.Millisecond,
		Policy:  policy,
	}
}

func newCounter(client *redis.Client) ratelimit.Counter {
	if client == nil {
		return ratelimit.NewMemoryCounter()
	}
	return ratelimit.NewRedisCounter(client)
}

func newResetStore(cfg *config.Config, client *redis.Client) resettoken.Store {
	if cfg.ResetTokenBackend == "redis" {
		if client != nil {
			return resettoken.NewRedisStore(client)
		}
		logger.Log.Warn("RESET_TOKEN_BACKEND=redis but redis is unavailable, falling back to memory")
	}
	return resettoken.NewMemoryStore()
}

func healthCheck(cacheManager *cache.CacheManager) func() gin.H {
	return func() gin.H {
		status := gin.H{"status": "healthy", "service": "prompt", "database": "connected", "redis": "disabled"}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if sqlDB, err := database.GetDB().DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["status"] = "unhealthy"
			status["database"] = "unreachable"
		}
		if cacheManager != nil {
			status["redis"] = "connected"
			if err := cacheManager.TestConnection(ctx); err != nil {
				status["redis"] = "unreachable"
			}
		}
		return status
	}
}

// servicePort extracts the listen port from a service URL such as http://localhost:8080
func servicePort(serviceURL string) string {
	if u, err := url.Parse(serviceURL); err == nil && u.Port() != "" {
		return u.Port()
	}
	return "8080"
}
