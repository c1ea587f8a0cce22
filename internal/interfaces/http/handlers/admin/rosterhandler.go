package admin

import (
	"context"

	"github.com/gin-gonic/gin"

	adminDomain "github.com/orris-inc/gatekeeper/internal/domain/admin"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

type RosterService interface {
	ListAdmins(ctx context.Context) ([]*adminDomain.Record, error)
}

type RosterHandler struct {
	roster RosterService
	logger logger.Interface
}

func NewRosterHandler(roster RosterService, logger logger.Interface) *RosterHandler {
	return &RosterHandler{roster: roster, logger: logger}
}

// ListAdmins handles GET /api/admin/admins
// @Summary List admins
// @Tags admins
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /api/admin/admins [get]
func (h *RosterHandler) ListAdmins(c *gin.Context) {
	list, err := h.roster.ListAdmins(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to list admins", "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}

	items := make([]AdminResponse, 0, len(list))
	for _, r := range list {
		items = append(items, toAdminResponse(r))
	}
	utils.ListSuccessResponse(c, items, len(items))
}
