package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/application/stats"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/export"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

type StatsService interface {
	Stats(ctx context.Context, actorID int64) (*stats.Stats, error)
	ExportMembers(ctx context.Context, actorID int64) ([]stats.MemberRow, error)
}

type StatsHandler struct {
	stats  StatsService
	clock  func() time.Time
	logger logger.Interface
}

func NewStatsHandler(svc StatsService, logger logger.Interface) *StatsHandler {
	return &StatsHandler{stats: svc, clock: time.Now, logger: logger}
}

// GetStats handles GET /api/admin/stats
// @Summary Community statistics
// @Tags stats
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /api/admin/stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	adminID, err := currentAdmin(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	s, err := h.stats.Stats(c.Request.Context(), adminID)
	if err != nil {
		h.logger.Errorw("failed to collect stats", "admin_id", adminID, "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", s)
}

// ExportMembers handles GET /api/admin/export/members.xlsx
// @Summary Export members as an Excel workbook
// @Description Super admins only
// @Tags stats
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security Bearer
// @Success 200 {file} file
// @Failure 403 {object} utils.APIResponse
// @Router /api/admin/export/members.xlsx [get]
func (h *StatsHandler) ExportMembers(c *gin.Context) {
	adminID, err := currentAdmin(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	rows, err := h.stats.ExportMembers(c.Request.Context(), adminID)
	if err != nil {
		h.logger.Warnw("member export refused or failed", "admin_id", adminID, "error", err)
		utils.ErrorResponseWithError(c, toAppError(err))
		return
	}

	data, err := export.MembersWorkbook(rows)
	if err != nil {
		h.logger.Errorw("failed to build member workbook", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("member export downloaded", "admin_id", adminID, "rows", len(rows))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(h.clock())))
	c.Data(http.StatusOK, export.ContentType, data)
}
