package notifications

import (
	"context"
	"sync"

	"github.com/angelmondragon/hostelhub-backend/pkg/logger"
	"github.com/angelmondragon/hostelhub-backend/pkg/metrics"
)

const transportWebSocket = "websocket"

// Client is one live connection of a principal.
type Client interface {
	ID() string
	Principal() Principal
	// Send queues msg without blocking and reports whether it was accepted.
	Send(msg Message) bool
	Close()
}

// HubParams wires the connection registry.
type HubParams struct {
	Logger  *logger.Logger
	Metrics *metrics.NotificationMetrics
}

// Hub tracks connected principals of this process.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client
	logg    *logger.Logger
	metrics *metrics.NotificationMetrics
}

func NewHub(params HubParams) *Hub {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Hub{
		clients: map[string]Client{},
		logg:    logg,
		metrics: params.Metrics,
	}
}

// Register adds c; a client already registered under the same id is replaced and closed.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	prev, existed := h.clients[c.ID()]
	h.clients[c.ID()] = c
	h.mu.Unlock()

	if existed && prev != c {
		prev.Close()
		return
	}
	if !existed {
		h.metrics.ConnectionsDelta(1)
	}
}

// Unregister removes c and closes it. Unknown clients are ignored.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	current, ok := h.clients[c.ID()]
	if ok && current == c {
		delete(h.clients, c.ID())
	}
	h.mu.Unlock()

	if ok && current == c {
		h.metrics.ConnectionsDelta(-1)
		c.Close()
	}
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connected lists the distinct principals matching aud.
func (h *Hub) Connected(aud Audience) []Principal {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []Principal{}
	for _, c := range h.clients {
		p := c.Principal()
		if !aud.Matches(p) {
			continue
		}
		if _, dup := seen[p.UserID]; dup {
			continue
		}
		seen[p.UserID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Deliver sends msg to every connection matching its audience and returns
// how many accepted it. A connection whose buffer is full is dropped.
func (h *Hub) Deliver(ctx context.Context, msg Message) int {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.clients))
	for _, c := range h.clients {
		if msg.Audience.Matches(c.Principal()) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.Send(msg) {
			delivered++
			h.metrics.ObserveDelivery(transportWebSocket, nil)
			continue
		}
		h.metrics.ObserveDelivery(transportWebSocket, errSlowClient)
		p := c.Principal()
		warnCtx := h.logg.WithFields(ctx, map[string]any{
			"client_id": c.ID(),
			"user_id":   p.UserID,
			"event":     msg.Event.String(),
		})
		h.logg.Warn(warnCtx, "dropping slow websocket client")
		h.Unregister(c)
	}
	return delivered
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[string]Client{}
	h.mu.Unlock()
	for _, c := range clients {
		h.metrics.ConnectionsDelta(-1)
		c.Close()
	}
}
