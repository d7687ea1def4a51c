package room

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"design-review-server/internal/errors"
	"design-review-server/internal/middleware"
)

// Handler upgrades authenticated requests onto the push channel.
type Handler struct {
	hub        *Hub
	upgrader   websocket.Upgrader
	sendBuffer int
	pongWait   time.Duration
	logger     *zap.Logger
}

func NewHandler(hub *Hub, environment, frontendAddress string, sendBuffer int, pongWait time.Duration, logger *zap.Logger) *Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if environment == "development" {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	} else {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return r.Header.Get("Origin") == frontendAddress
		}
	}

	return &Handler{
		hub:        hub,
		upgrader:   upgrader,
		sendBuffer: sendBuffer,
		pongWait:   pongWait,
		logger:     logger,
	}
}

// ServeWS runs behind AuthMiddleware; the identity token arrives as a query
// parameter since browsers cannot set headers on websocket upgrades.
func (h *Handler) ServeWS(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.Error(errors.Unauthorized("Authorization is not found!", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(
		h.hub,
		conn,
		uuid.NewString(),
		identity.Role,
		identity.Name,
		identity.ProjectID,
		h.sendBuffer,
		h.pongWait,
		h.logger,
	)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
