package router

import (
	"realtime-service/internal/config"
	"realtime-service/internal/handler"
	"realtime-service/internal/middleware"
	"realtime-service/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// New assembles the HTTP surface: probes and metrics at the root, the
// WebSocket endpoint and the REST reads under the service base path.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	validator middleware.TokenValidator,
	gateway *ws.Gateway,
	healthHandler *handler.HealthHandler,
	presenceHandler *handler.PresenceHandler,
	callHandler *handler.CallHandler,
) *gin.Engine {
	if cfg.Server.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.Metrics())

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", middleware.MetricsHandler())

	api := r.Group(cfg.Server.BasePath)
	{
		// The WebSocket endpoint authenticates inside the handshake; the
		// token arrives as a query parameter since browsers cannot set
		// headers on WebSocket upgrades.
		api.GET("/ws", gateway.HandleWebSocket)

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(validator))
		{
			authed.GET("/presence/online", presenceHandler.GetOnlineUsers)
			authed.GET("/presence/status/:userId", presenceHandler.GetUserStatus)
			authed.GET("/calls/history", callHandler.GetHistory)
		}
	}

	return r
}
