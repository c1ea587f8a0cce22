package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/interfaces/http/middleware"
	"github.com/orris-inc/gatekeeper/internal/shared/errors"
)

func parseMemberID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("invalid member id")
	}
	return id, nil
}

func parseTicketID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.NewValidationError("invalid ticket id")
	}
	return uint(id), nil
}

func currentAdmin(c *gin.Context) (int64, error) {
	id, ok := middleware.AdminID(c)
	if !ok {
		return 0, errors.NewUnauthorizedError("admin not authenticated")
	}
	return id, nil
}
