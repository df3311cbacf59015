package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/config"
	"github.com/mamadbah2/vendsync/internal/metrics"
	"github.com/mamadbah2/vendsync/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(cfg config.ServerConfig, views *handlers.ViewsHandler, purchases *handlers.PurchaseHandler, reports *handlers.ReportsHandler, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.GET("/position", views.Position)
	v1.GET("/view", views.View)
	v1.GET("/machines", views.Machines)
	v1.POST("/machines/back", views.BackToMachines)
	v1.POST("/machines/:id/open", views.OpenMachine)
	v1.GET("/nearest", views.Nearest)
	v1.POST("/nearest", views.ShowNearest)
	v1.GET("/search", views.Search)
	v1.PUT("/search", views.SetSearch)
	v1.GET("/inventory", views.Inventory)
	v1.POST("/purchases", purchases.Purchase)
	v1.GET("/purchases", purchases.History)
	v1.POST("/demand", purchases.RequestRestock)
	if reports != nil {
		v1.GET("/reports/latest", reports.Latest)
	}

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

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
