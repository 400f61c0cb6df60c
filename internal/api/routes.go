package api

import (
	"github.com/gin-gonic/gin"

	"github.com/RishiKendai/codenest/internal/config"
)

func SetupRoutes(cfg *config.Config, handler *Handler) *gin.Engine {
	router := gin.Default()

	// Create rate limiter
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Middleware
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/compute", handler.Compute)
		api.GET("/batches/:batchId", handler.GetReport)
		api.GET("/batches/:batchId/status", handler.GetStatus)
		api.GET("/batches/:batchId/comparisons", handler.GetComparisons)
		api.POST("/compare", handler.Compare)
		api.POST("/classify", handler.Classify)
	}

	return router
}
