package annotation

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

type CreateAnnotationRequest struct {
	FileID uint64 `json:"fileId" binding:"required"`
	// ProjectID is accepted for wire compatibility but the authoritative
	// project is always resolved from the file.
	ProjectID uint64         `json:"projectId"`
	Content   string         `json:"content" binding:"required"`
	Author    *domain.Author `json:"author"`
	Position  *Position      `json:"position"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.CreateAnnotation(c.Request.Context(), CreateAnnotationInput{
		FileID:   req.FileID,
		Content:  req.Content,
		Author:   actorFrom(c, req.Author),
		Position: req.Position,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

type AddReplyRequest struct {
	AnnotationID uint64         `json:"annotationId" binding:"required"`
	Content      string         `json:"content" binding:"required"`
	Author       *domain.Author `json:"author"`
}

func (h *Handler) AddReply(c *gin.Context) {
	var req AddReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.AddReply(c.Request.Context(), req.AnnotationID, ReplyInput{
		Content: req.Content,
		Author:  actorFrom(c, req.Author),
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

type SetStatusRequest struct {
	AnnotationID uint64         `json:"annotationId" binding:"required"`
	Status       string         `json:"status" binding:"required"`
	Actor        *domain.Author `json:"actor"`
}

func (h *Handler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.SetStatus(
		c.Request.Context(),
		req.AnnotationID,
		req.Status,
		actorFrom(c, req.Actor),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Delete(c *gin.Context) {
	annotationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid annotation id", err))
		return
	}

	if err := h.service.DeleteAnnotation(c.Request.Context(), annotationID, actorFrom(c, nil)); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List serves both the resync pull (?projectId=) and the per-file view
// (?fileId=). The result is ordered and ID-keyed so polling consumers can
// dedupe against push events by entity ID.
func (h *Handler) List(c *gin.Context) {
	if projectIDStr := c.Query("projectId"); projectIDStr != "" {
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			c.Error(errors.BadRequest("Invalid project id", err))
			return
		}
		result, svcErr := h.service.ListByProject(c.Request.Context(), projectID)
		if svcErr != nil {
			c.Error(svcErr)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if fileIDStr := c.Query("fileId"); fileIDStr != "" {
		fileID, err := strconv.ParseUint(fileIDStr, 10, 64)
		if err != nil {
			c.Error(errors.BadRequest("Invalid file id", err))
			return
		}
		result, svcErr := h.service.ListByFile(c.Request.Context(), fileID)
		if svcErr != nil {
			c.Error(svcErr)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	c.Error(errors.BadRequest("projectId or fileId is required", nil))
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
