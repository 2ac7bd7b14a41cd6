package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "promptmaker-backend/docs"
	"promptmaker-backend/prompt-service/handlers"
	"promptmaker-backend/prompt-service/middleware"
	"promptmaker-backend/prompt-service/services"
	utils "promptmaker-backend/shared/utils/auth"
	"promptmaker-backend/shared/utils/ratelimit"
)

// routerDeps carries everything the HTTP layer needs
type routerDeps struct {
	auth        *handlers.AuthHandler
	prompts     *handlers.PromptHandler
	feed        *services.FeedHub
	limiter     *ratelimit.Limiter
	frontendURL string
	health      func() gin.H
}

func setupRouter(deps routerDeps) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		utils.RegisterJSONTagNames(v)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{deps.frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(deps.limiter))

	// Auth endpoints
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", deps.auth.Register)
		authGroup.POST("/login", deps.auth.Login)
		authGroup.POST("/refresh", deps.auth.Refresh)
		authGroup.GET("/me", middleware.AuthMiddleware(), deps.auth.Me)

		// Password management endpoints
		authGroup.POST("/change-password", middleware.AuthMiddleware(), deps.auth.ChangePassword)
		authGroup.POST("/forgot-password", deps.auth.ForgotPassword)
		authGroup.POST("/reset-password", deps.auth.ResetPassword)
	}

	api.POST("/users/me/avatar", middleware.AuthMiddleware(), deps.auth.UploadAvatar)

	// Prompt endpoints
	promptGroup := api.Group("/prompts")
	{
		promptGroup.GET("", middleware.OptionalAuthMiddleware(), deps.prompts.ListPrompts)
		promptGroup.POST("", middleware.AuthMiddleware(), deps.prompts.CreatePrompt)
		promptGroup.POST("/moderate", deps.prompts.ModeratePreview)
		promptGroup.GET("/:id", middleware.OptionalAuthMiddleware(), deps.prompts.GetPrompt)
		promptGroup.PUT("/:id", middleware.AuthMiddleware(), deps.prompts.UpdatePrompt)
		promptGroup.DELETE("/:id", middleware.AuthMiddleware(), deps.prompts.DeletePrompt)
		promptGroup.POST("/:id/vote", middleware.AuthMiddleware(), deps.prompts.Vote)
		promptGroup.GET("/:id/comments", middleware.OptionalAuthMiddleware(), deps.prompts.ListComments)
		promptGroup.POST("/:id/comments", middleware.AuthMiddleware(), deps.prompts.CreateComment)
	}

	api.DELETE("/comments/:id", middleware.AuthMiddleware(), deps.prompts.DeleteComment)

	router.GET("/ws/feed", handlers.FeedHandler(deps.feed))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "healthy", "service": "prompt"}
		if deps.health != nil {
			status = deps.health()
		}
		code := http.StatusOK
		if status["status"] != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
