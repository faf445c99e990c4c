package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uploadgate/internal/handlers"
	"uploadgate/internal/logger"
	"uploadgate/internal/middleware"
	"uploadgate/live"
)

// AppHandlers bundles the HTTP handlers the router registers.
type AppHandlers struct {
	UploadHandler  *handlers.UploadHandler
	WebhookHandler *handlers.WebhookHandler
}

// RegisterRoutes registers all HTTP, SSE and WebSocket routes.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *AppHandlers,
	liveHandler *live.Handler,
) {
	ginRouter.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api/v1")
	{
		uploads := api.Group("")
		uploads.Use(middleware.OptionalAuthMiddleware())
		{
			appHandlers.UploadHandler.RegisterRoutes(uploads)
		}

		// Provider callbacks authenticate with the shared webhook token,
		// not a user JWT.
		appHandlers.WebhookHandler.RegisterRoutes(api)

		events := api.Group("/events")
		events.Use(middleware.OptionalAuthMiddleware())
		{
			events.GET("", liveHandler.ServeSSE)
		}
	}

	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.OptionalAuthMiddleware())
	{
		wsGroup.GET("", liveHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}
