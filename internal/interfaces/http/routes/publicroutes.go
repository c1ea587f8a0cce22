package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/orris-inc/gatekeeper/docs"

	"github.com/orris-inc/gatekeeper/internal/interfaces/http/handlers"
	"github.com/orris-inc/gatekeeper/internal/interfaces/http/middleware"
)

type PublicRouteConfig struct {
	HealthHandler  *handlers.HealthHandler
	ConsentHandler *handlers.ConsentHandler
	WebhookHandler *handlers.WebhookHandler
	RateLimiter    *middleware.RateLimiter
}

func SetupPublicRoutes(engine *gin.Engine, config *PublicRouteConfig) {
	engine.GET("/health", config.HealthHandler.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/consent/document", config.ConsentHandler.Document)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	webhooks := engine.Group("/webhooks")
	webhooks.Use(config.RateLimiter.Limit())
	{
		webhooks.POST("/stripe", config.WebhookHandler.Stripe)
		webhooks.POST("/telegram", config.WebhookHandler.Telegram)
	}
}
