package review

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"design-review-server/internal/domain"
	"design-review-server/internal/errors"
	"design-review-server/internal/middleware"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type ApproveRequest struct {
	Action  string         `json:"action" binding:"required"`
	Comment string         `json:"comment"`
	Actor   *domain.Author `json:"actor"`
}

// Approve handles the terminal review decision: action "approve" or
// "reject" ("rejected" accepted for older clients).
func (h *Handler) Approve(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid project id", err))
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	target, err := domain.ParseProjectAction(req.Action)
	if err != nil {
		c.Error(errors.BadRequest("Unknown review action", err))
		return
	}

	status, svcErr := h.service.RequestTransition(
		c.Request.Context(),
		projectID,
		target,
		actorFrom(c, req.Actor),
		req.Comment,
	)
	if svcErr != nil {
		c.Error(svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

type SubmitRequest struct {
	Actor *domain.Author `json:"actor"`
}

func (h *Handler) Submit(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid project id", err))
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.Error(errors.NewValidationError(err))
		return
	}

	status, svcErr := h.service.SubmitForReview(
		c.Request.Context(),
		projectID,
		actorFrom(c, req.Actor),
	)
	if svcErr != nil {
		c.Error(svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *Handler) ShowStatus(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid project id", err))
		return
	}

	status, svcErr := h.service.ProjectStatus(c.Request.Context(), projectID)
	if svcErr != nil {
		c.Error(svcErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

// actorFrom prefers the verified token identity over the self-asserted
// request body, which is kept for wire compatibility only.
func actorFrom(c *gin.Context, bodyActor *domain.Author) domain.Author {
	if identity := middleware.IdentityFrom(c); identity != nil {
		return domain.Author{Role: identity.Role, Name: identity.Name}
	}
	if bodyActor != nil {
		return *bodyActor
	}
	return domain.Author{}
}
