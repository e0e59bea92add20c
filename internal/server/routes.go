package server

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(allowedOrigins []string, handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(allowedOrigins))

	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/menu", handler.GetMenu)
		api.DELETE("/menu", handler.ClearMenu)
		api.GET("/status", handler.Status)
		api.POST("/refresh", handler.Refresh)
		api.GET("/events", handler.Events)
	}

	return router
}
