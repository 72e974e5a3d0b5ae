package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sports_club_backend/internal/handlers"
)

// SetupExecRoutes sets up the single action endpoint.
func SetupExecRoutes(apiGroup *gin.RouterGroup, gate gin.HandlerFunc, dispatcher *handlers.Dispatcher) {
	execRoutes := apiGroup.Group("/exec")
	execRoutes.Use(gate)
	{
		execRoutes.GET("", dispatcher.Handle)
		execRoutes.POST("", dispatcher.Handle)
	}
}

// SetupHealthRoutes sets up the liveness check.
func SetupHealthRoutes(engine *gin.Engine) {
	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
}

// SetupMetricsRoutes exposes the Prometheus registry.
func SetupMetricsRoutes(engine *gin.Engine) {
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
