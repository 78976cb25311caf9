// Package router wires the HTTP routes for the fulfillment API.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/infrastructure/logger"
	"github.com/retailops/fulfillment/internal/interfaces/http/handler"
	"github.com/retailops/fulfillment/internal/interfaces/http/middleware"
)

// defaultBodyLimit caps request bodies at 1MB. Quote and booking
// payloads are small; anything larger is a client bug.
const defaultBodyLimit = 1 << 20

// Config holds the handlers and middleware inputs for route setup.
type Config struct {
	Rates     *handler.RateHandler
	Shipments *handler.ShipmentHandler
	Webhooks  *handler.WebhookHandler
	System    *handler.SystemHandler

	Logger         *zap.Logger
	BodyLimit      int64
	TrustedProxies []string
	CORSOrigins    []string
}

// New builds the gin engine with all routes registered.
func New(cfg Config) *gin.Engine {
	engine := gin.New()

	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			cfg.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}

	engine.Use(
		middleware.RequestID(),
		middleware.CORS(cfg.CORSOrigins),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.BodyLimit(bodyLimit),
	)

	engine.GET("/health", cfg.System.Health)

	// Carrier callbacks post to the root path configured on the carrier
	// side, outside the versioned API surface.
	engine.POST("/webhooks/carrier", cfg.Webhooks.Receive)

	api := engine.Group("/api/v1")
	{
		api.POST("/rates/calculate", cfg.Rates.Calculate)

		shipments := api.Group("/shipments")
		{
			shipments.POST("", cfg.Shipments.Create)
			shipments.POST("/single", cfg.Shipments.CreateSingle)
			shipments.GET("/stats", cfg.Shipments.Stats)
			shipments.POST("/refresh-all", cfg.Shipments.RefreshAll)
			shipments.GET("/:id", cfg.Shipments.Get)
			shipments.POST("/:id/refresh", cfg.Shipments.Refresh)
			shipments.POST("/:id/cancel", cfg.Shipments.Cancel)
		}

		api.GET("/orders/:id/shipments", cfg.Shipments.ListByOrder)
	}

	return engine
}
