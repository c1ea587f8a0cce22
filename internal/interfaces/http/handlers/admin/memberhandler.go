package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/domain/member"
	"github.com/orris-inc/gatekeeper/internal/shared/errors"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

type AdmissionService interface {
	ListByRequestStatus(ctx context.Context, rs member.RequestStatus) ([]*member.Member, error)
	Stage(ctx context.Context, userID int64) (member.Stage, error)
	Approve(ctx context.Context, userID, adminID int64) (*member.Member, error)
	Reject(ctx context.Context, userID, adminID int64) (*member.Member, error)
	Reconsider(ctx context.Context, userID, adminID int64) (*member.Member, error)
}

type MemberHandler struct {
	admission AdmissionService
	logger    logger.Interface
}

func NewMemberHandler(admission AdmissionService, logger logger.Interface) *MemberHandler {
	return &MemberHandler{admission: admission, logger: logger}
}

// ListMembers handles GET /api/admin/members?status=pending
// @Summary List membership requests
// @Description List members whose access request is pending or rejected
// @Tags members
// @Produce json
// @Security Bearer
// @Param status query string false "pending or rejected" default(pending)
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /api/admin/members [get]
func (h *MemberHandler) ListMembers(c *gin.Context) {
	status := c.DefaultQuery("status", member.RequestStatusPending.String())
	rs, err := member.NewRequestStatus(status)
	if err != nil || rs == member.RequestStatusNone {
		utils.ErrorResponseWithError(c, errors.NewValidationError("status must be pending or rejected"))
		return
	}

	list, err := h.admission.ListByRequestStatus(c.Request.Context(), rs)
	if err != nil {
		h.logger.Errorw("failed to list members", "status", status, "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}

	// pending and rejected requests derive to the stage of the same name
	stage := member.StagePending
	if rs == member.RequestStatusRejected {
		stage = member.StageRejected
	}
	items := make([]MemberResponse, 0, len(list))
	for _, m := range list {
		items = append(items, toMemberResponse(m, stage))
	}
	utils.ListSuccessResponse(c, items, len(items))
}

// Approve handles POST /api/admin/members/:id/approve
// @Summary Approve a membership request
// @Tags members
// @Produce json
// @Security Bearer
// @Param id path int true "Telegram user ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/admin/members/{id}/approve [post]
func (h *MemberHandler) Approve(c *gin.Context) {
	h.decide(c, "approve", h.admission.Approve, "Member approved")
}

// Reject handles POST /api/admin/members/:id/reject
// @Summary Reject a membership request
// @Tags members
// @Produce json
// @Security Bearer
// @Param id path int true "Telegram user ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/admin/members/{id}/reject [post]
func (h *MemberHandler) Reject(c *gin.Context) {
	h.decide(c, "reject", h.admission.Reject, "Member rejected")
}

// Reconsider handles POST /api/admin/members/:id/reconsider
// @Summary Reopen a rejected request
// @Description Return a rejected member to the initial stage so they can request access again
// @Tags members
// @Produce json
// @Security Bearer
// @Param id path int true "Telegram user ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/admin/members/{id}/reconsider [post]
func (h *MemberHandler) Reconsider(c *gin.Context) {
	h.decide(c, "reconsider", h.admission.Reconsider, "Member may request access again")
}

func (h *MemberHandler) decide(
	c *gin.Context,
	action string,
	fn func(ctx context.Context, userID, adminID int64) (*member.Member, error),
	message string,
) {
	adminID, err := currentAdmin(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	userID, err := parseMemberID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	m, err := fn(ctx, userID, adminID)
	if err != nil {
		h.logger.Warnw("admission decision failed", "action", action, "user_id", userID, "admin_id", adminID, "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}

	stage, err := h.admission.Stage(ctx, userID)
	if err != nil {
		h.logger.Errorw("failed to derive stage", "user_id", userID, "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}

	h.logger.Infow("admission decision via api", "action", action, "user_id", userID, "admin_id", adminID)
	utils.SuccessResponse(c, http.StatusOK, message, toMemberResponse(m, stage))
}
