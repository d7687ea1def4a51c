package auth

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"design-review-server/internal/errors"
)

type Handler struct {
	share *ShareService
}

func NewHandler(share *ShareService) *Handler {
	return &Handler{share: share}
}

type CreateLinkRequest struct {
	Passcode string `json:"passcode"`
	TTLHours int    `json:"ttl_hours"`
}

func (h *Handler) CreateLink(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid project id", err))
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.Error(errors.NewValidationError(err))
		return
	}

	link, token, err := h.share.CreateLink(
		c.Request.Context(),
		projectID,
		req.Passcode,
		time.Duration(req.TTLHours)*time.Hour,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"link":  link,
		"token": token,
	})
}

type ExchangeTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Passcode string `json:"passcode"`
	Name     string `json:"name"`
}

func (h *Handler) ExchangeToken(c *gin.Context) {
	var req ExchangeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	token, err := h.share.ExchangeToken(
		c.Request.Context(),
		req.Token,
		req.Passcode,
		req.Name,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
