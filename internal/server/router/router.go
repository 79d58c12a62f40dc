package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(overviewHandler *handlers.OverviewHandler, alertsHandler *handlers.AlertsHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.GET("/overview", overviewHandler.Get)
	api.POST("/alerts/scan", alertsHandler.Scan)
	api.GET("/alerts", alertsHandler.List)
	api.POST("/notifications", alertsHandler.SendMessage)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if session := c.GetHeader(handlers.SessionHeader); session != "" {
			fields = append(fields, zap.String("session_id", session))
		}
		logger.Info("request completed", fields...)
	}
}
