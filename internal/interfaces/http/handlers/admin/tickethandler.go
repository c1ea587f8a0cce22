package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/domain/ticket"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

type SupportService interface {
	ListOpen(ctx context.Context, actorID int64) ([]*ticket.Ticket, error)
	Close(ctx context.Context, ticketID uint, actorID int64) (*ticket.Ticket, error)
}

type TicketHandler struct {
	support SupportService
	logger  logger.Interface
}

func NewTicketHandler(support SupportService, logger logger.Interface) *TicketHandler {
	return &TicketHandler{support: support, logger: logger}
}

// ListTickets handles GET /api/admin/tickets
// @Summary List open support tickets
// @Tags tickets
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /api/admin/tickets [get]
func (h *TicketHandler) ListTickets(c *gin.Context) {
	adminID, err := currentAdmin(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	list, err := h.support.ListOpen(c.Request.Context(), adminID)
	if err != nil {
		h.logger.Errorw("failed to list tickets", "admin_id", adminID, "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}

	items := make([]TicketResponse, 0, len(list))
	for _, t := range list {
		items = append(items, toTicketResponse(t))
	}
	utils.ListSuccessResponse(c, items, len(items))
}

// CloseTicket handles POST /api/admin/tickets/:id/close
// @Summary Close a support ticket
// @Tags tickets
// @Produce json
// @Security Bearer
// @Param id path int true "Ticket ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/admin/tickets/{id}/close [post]
func (h *TicketHandler) CloseTicket(c *gin.Context) {
	adminID, err := currentAdmin(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	ticketID, err := parseTicketID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	t, err := h.support.Close(c.Request.Context(), ticketID, adminID)
	if err != nil {
		h.logger.Warnw("failed to close ticket", "ticket_id", ticketID, "admin_id", adminID, "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ticket closed", toTicketResponse(t))
}
