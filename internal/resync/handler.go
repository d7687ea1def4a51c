package resync

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"design-review-server/internal/errors"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Show(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid project id", err))
		return
	}

	snapshot, svcErr := h.service.Snapshot(c.Request.Context(), projectID)
	if svcErr != nil {
		c.Error(svcErr)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
