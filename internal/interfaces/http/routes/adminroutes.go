package routes

import (
	"github.com/gin-gonic/gin"

	adminhandlers "github.com/orris-inc/gatekeeper/internal/interfaces/http/handlers/admin"
	"github.com/orris-inc/gatekeeper/internal/interfaces/http/middleware"
)

type AdminRouteConfig struct {
	MemberHandler  *adminhandlers.MemberHandler
	RosterHandler  *adminhandlers.RosterHandler
	TicketHandler  *adminhandlers.TicketHandler
	StatsHandler   *adminhandlers.StatsHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

func SetupAdminRoutes(engine *gin.Engine, config *AdminRouteConfig) {
	api := engine.Group("/api/admin")
	api.Use(config.RateLimiter.Limit(), config.AuthMiddleware.RequireAdmin())
	{
		api.GET("/members", config.MemberHandler.ListMembers)
		api.POST("/members/:id/approve", config.MemberHandler.Approve)
		api.POST("/members/:id/reject", config.MemberHandler.Reject)
		api.POST("/members/:id/reconsider", config.MemberHandler.Reconsider)

		api.GET("/admins", config.RosterHandler.ListAdmins)

		api.GET("/tickets", config.TicketHandler.ListTickets)
		api.POST("/tickets/:id/close", config.TicketHandler.CloseTicket)

		api.GET("/stats", config.StatsHandler.GetStats)
		api.GET("/export/members.xlsx", config.StatsHandler.ExportMembers)
	}
}
