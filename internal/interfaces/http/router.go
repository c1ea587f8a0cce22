// Package http serves the admin API, the provider webhooks and the public
// endpoints, and wires the services they share with the bot.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/infrastructure/database"
	"github.com/orris-inc/gatekeeper/internal/interfaces/http/handlers"
	adminhandlers "github.com/orris-inc/gatekeeper/internal/interfaces/http/handlers/admin"
	"github.com/orris-inc/gatekeeper/internal/interfaces/http/middleware"
	"github.com/orris-inc/gatekeeper/internal/interfaces/http/routes"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
)

// Version is reported by /health. Set at build time.
var Version = "dev"

type Router struct {
	engine    *gin.Engine
	container *Container
	server    *http.Server
	logger    logger.Interface
}

func NewRouter(c *Container) *Router {
	if !c.Config.Server.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	log := logger.WithComponent("http")
	engine.Use(middleware.Recovery(log), middleware.Logger(log), middleware.SecurityHeaders())

	r := &Router{engine: engine, container: c, logger: log}
	r.SetupRoutes()
	return r
}

func (r *Router) SetupRoutes() {
	c := r.container
	limiter := middleware.NewRateLimiter(c.Limiter, c.Config.Server.RateLimitPerMinute, r.logger)

	routes.SetupPublicRoutes(r.engine, &routes.PublicRouteConfig{
		HealthHandler: handlers.NewHealthHandler(Version, map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error { return database.Ping(ctx, c.DB) },
			"redis":    func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() },
		}),
		ConsentHandler: handlers.NewConsentHandler(c.Document),
		WebhookHandler: handlers.NewWebhookHandler(c.Billing, c.BotRouter, c.Config.Telegram.WebhookSecret, r.logger),
		RateLimiter:    limiter,
	})

	routes.SetupAdminRoutes(r.engine, &routes.AdminRouteConfig{
		MemberHandler:  adminhandlers.NewMemberHandler(c.Admission, r.logger),
		RosterHandler:  adminhandlers.NewRosterHandler(c.Roster, r.logger),
		TicketHandler:  adminhandlers.NewTicketHandler(c.Support, r.logger),
		StatsHandler:   adminhandlers.NewStatsHandler(c.Stats, r.logger),
		AuthMiddleware: middleware.NewAuthMiddleware(c.JWT, c.Roster, r.logger),
		RateLimiter:    limiter,
	})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run serves until Shutdown is called.
func (r *Router) Run(addr string) error {
	r.server = &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.logger.Infow("http server listening", "addr", addr)
	if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
