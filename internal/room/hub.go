package room

import (
	"encoding/json"

	"go.uber.org/zap"

	"design-review-server/internal/metrics"
)

// Hub fans committed mutations out to room members. A single run loop owns
// the client set and performs every delivery, so events within one room
// reach all members in commit order. Delivery is fire-and-forget: there is
// no ack or retry, and a missed event is repaired only by the next resync.
// The sender receives its own echo; nobody is excluded.
type Hub struct {
	registry *Registry

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}

	logger  *zap.Logger
	metrics *metrics.Service
}

func NewHub(registry *Registry, logger *zap.Logger, metricsSvc *metrics.Service) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    metricsSvc,
	}
}

// Publish queues a committed mutation for fan-out. Callers must only invoke
// this after the store write succeeded; the hub never sees speculative state.
func (h *Hub) Publish(evt Event) {
	select {
	case h.broadcast <- evt:
	case <-h.done:
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c.connID] = c
			if h.metrics != nil {
				h.metrics.ClientConnected()
			}

		case c := <-h.unregister:
			h.drop(c, true)

		case evt := <-h.broadcast:
			h.deliver(evt)

		case <-h.done:
			for _, c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[string]*Client)
			return
		}
	}
}

// Stop shuts the hub down; pending sends are abandoned.
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) deliver(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("kind", string(evt.Kind)), zap.Error(err))
		return
	}

	members := h.registry.MembersOf(evt.ProjectID)
	delivered := 0
	for _, m := range members {
		c, ok := h.clients[m.ConnID]
		if !ok {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			// Slow consumer: its buffer is full, so it can no longer keep
			// the ordering guarantee. Disconnect it; it must resync.
			if h.metrics != nil {
				h.metrics.EventDropped()
			}
			h.logger.Warn("dropping slow client",
				zap.String("conn_id", m.ConnID),
				zap.Uint64("project_id", evt.ProjectID),
			)
			h.drop(c, false)
		}
	}

	if h.metrics != nil && delivered > 0 {
		h.metrics.EventBroadcast(string(evt.Kind), delivered)
	}
}

// drop removes a client from the hub and the registry. Called from the run
// loop only. When announce is set the remaining room is told the member left.
func (h *Hub) drop(c *Client, announce bool) {
	if _, ok := h.clients[c.connID]; !ok {
		return
	}
	delete(h.clients, c.connID)
	close(c.send)
	if h.metrics != nil {
		h.metrics.ClientDisconnected()
	}

	s, wasJoined := h.registry.Leave(c.connID)
	if wasJoined && announce {
		h.deliver(Event{
			Kind:      EventPresence,
			ProjectID: s.ProjectID,
			Payload: PresencePayload{
				Action:  "left",
				Role:    s.Role,
				Name:    s.Name,
				Members: h.registry.Count(s.ProjectID),
			},
		})
	}
}
