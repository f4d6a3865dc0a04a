// Package sse pushes real-time notifications to connected browsers over
// Server-Sent Events. Delivery is at-most-once: nothing is stored for clients
// that are offline or too slow.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	clientBuffer      = 32
	heartbeatInterval = 25 * time.Second
)

// Event is one message on the stream. Type is the SSE event name.
type Event struct {
	Type string
	Data any
}

type client struct {
	userID uuid.UUID
	events chan Event
}

// Gateway tracks connected clients by user id, so each user has a private room.
type Gateway struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	closed  bool
	log     *logger.Logger
}

func New(log *logger.Logger) *Gateway {
	return &Gateway{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (g *Gateway) addClient(c *client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.clients[c.userID] = append(g.clients[c.userID], c)
	return true
}

// removeClient closes c.events unless Close already did.
func (g *Gateway) removeClient(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	clients := g.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			g.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			close(c.events)
			break
		}
	}
	if len(g.clients[c.userID]) == 0 {
		delete(g.clients, c.userID)
	}
}

// EmitToUser sends an event to every connection of userID.
func (g *Gateway) EmitToUser(userID uuid.UUID, eventType string, payload any) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, c := range g.clients[userID] {
		g.offer(c, Event{Type: eventType, Data: payload})
	}
	g.log.Debug("sse event emitted", "event", eventType, "user_id", userID, "clients", len(g.clients[userID]))
}

// Broadcast sends an event to every connected client.
func (g *Gateway) Broadcast(eventType string, payload any) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	count := 0
	for _, clients := range g.clients {
		for _, c := range clients {
			g.offer(c, Event{Type: eventType, Data: payload})
			count++
		}
	}
	g.log.Debug("sse event broadcast", "event", eventType, "clients", count)
}

// offer must be called with g.mu held.
func (g *Gateway) offer(c *client, event Event) {
	select {
	case c.events <- event:
	default:
		g.log.Warn("sse buffer full; dropping event", "event", event.Type, "user_id", c.userID)
	}
}

// ConnectedUsers returns the number of users with at least one open stream.
func (g *Gateway) ConnectedUsers() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Handler streams events for the authenticated user until the request ends.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.GetIdentity(c)
		if identity == nil || !identity.IsAuthenticated() {
			httpkit.Error(c, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		userID := identity.UserID()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{userID: userID, events: make(chan Event, clientBuffer)}
		if !g.addClient(cl) {
			httpkit.Error(c, http.StatusServiceUnavailable, "Server is shutting down", nil)
			return
		}
		defer g.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()
		g.log.Info("sse client connected", "user_id", userID)

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				g.log.Info("sse client disconnected", "user_id", userID)
				return
			case <-heartbeat.C:
				_, _ = c.Writer.Write([]byte(": ping\n\n"))
				c.Writer.Flush()
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, err := json.Marshal(event.Data)
				if err != nil {
					g.log.Warn("sse payload not serializable", "event", event.Type, "error", err)
					continue
				}
				c.SSEvent(event.Type, string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client and rejects new ones.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, clients := range g.clients {
		for _, c := range clients {
			close(c.events)
		}
	}
	g.clients = make(map[uuid.UUID][]*client)
	g.closed = true
}
