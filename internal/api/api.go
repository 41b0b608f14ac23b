// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/invensight/stockpulse/internal/api/handlers"
	"github.com/invensight/stockpulse/internal/api/middleware"
	"github.com/invensight/stockpulse/internal/service"
)

func NewRouter(evaluation *service.EvaluationService, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if evaluation != nil {
		engineHandler := handlers.NewEngineHandler(evaluation)

		inventoryGroup := apiGroup.Group("/inventory")
		{
			inventoryGroup.GET("/status", engineHandler.GetStatuses)
			inventoryGroup.GET("/summary", engineHandler.GetSummary)
			inventoryGroup.GET("/recommendations", engineHandler.GetRecommendations)
			inventoryGroup.GET("/forecast/:product_id", engineHandler.GetForecast)
		}

		apiGroup.GET("/alerts", engineHandler.GetAlerts)

		engineGroup := apiGroup.Group("/engine")
		{
			engineGroup.POST("/evaluate", engineHandler.Evaluate)
			engineGroup.POST("/evaluate/:product_id", engineHandler.EvaluateProduct)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
