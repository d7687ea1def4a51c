package room

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// ControlMessage is what clients send over the push channel. The channel is
// control-only: all mutations go through the REST interface, and the
// expected client sequence is connect, join-project, resync over HTTP, then
// consume push events.
type ControlMessage struct {
	Type      string `json:"type"`
	ProjectID uint64 `json:"projectId"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	connID string
	role   string
	name   string
	// allowedProject restricts reviewer tokens to the project their review
	// link was issued for. Zero means unrestricted.
	allowedProject uint64

	pongWait time.Duration
	logger   *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, connID, role, name string, allowedProject uint64, sendBuffer int, pongWait time.Duration, logger *zap.Logger) *Client {
	return &Client{
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		connID:         connID,
		role:           role,
		name:           name,
		allowedProject: allowedProject,
		pongWait:       pongWait,
		logger:         logger,
	}
}

// ReadPump consumes control messages until the connection dies. Any exit
// path, normal or abnormal, unregisters the client so no orphaned room
// membership survives a closed connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("connection closed unexpectedly",
					zap.String("conn_id", c.connID),
					zap.Error(err),
				)
			}
			return
		}

		var msg ControlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("unreadable control message", zap.String("conn_id", c.connID))
			continue
		}

		switch msg.Type {
		case "join-project":
			c.handleJoin(msg.ProjectID)
		case "leave-project":
			c.handleLeave()
		default:
			c.logger.Warn("unknown control message",
				zap.String("conn_id", c.connID),
				zap.String("type", msg.Type),
			)
		}
	}
}

func (c *Client) handleJoin(projectID uint64) {
	if projectID == 0 {
		return
	}
	if c.allowedProject != 0 && c.allowedProject != projectID {
		c.logger.Warn("join denied for foreign project",
			zap.String("conn_id", c.connID),
			zap.Uint64("project_id", projectID),
		)
		c.conn.Close()
		return
	}

	changed := c.hub.registry.Join(Session{
		ConnID:    c.connID,
		ProjectID: projectID,
		Role:      c.role,
		Name:      c.name,
		JoinedAt:  time.Now().UTC(),
	})
	if !changed {
		// duplicate join, nothing to announce
		return
	}

	// The presence echo doubles as the join ack: the joiner receives it too.
	c.hub.Publish(Event{
		Kind:      EventPresence,
		ProjectID: projectID,
		Payload: PresencePayload{
			Action:  "joined",
			Role:    c.role,
			Name:    c.name,
			Members: c.hub.registry.Count(projectID),
		},
	})
}

func (c *Client) handleLeave() {
	s, ok := c.hub.registry.Leave(c.connID)
	if !ok {
		return
	}
	c.hub.Publish(Event{
		Kind:      EventPresence,
		ProjectID: s.ProjectID,
		Payload: PresencePayload{
			Action:  "left",
			Role:    s.Role,
			Name:    s.Name,
			Members: c.hub.registry.Count(s.ProjectID),
		},
	})
}

// WritePump drains the send channel and keeps the connection alive with
// pings. Dead peers are detected within pongWait.
func (c *Client) WritePump() {
	pingPeriod := (c.pongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub dropped us
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
