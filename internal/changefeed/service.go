// Package changefeed streams entity changes to connected UIs over
// Server-Sent Events so lists refresh without polling.
package changefeed

import (
	"encoding/json"
	"sync"

	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Change is one entry on the feed.
type Change struct {
	Type   string      `json:"type"`
	LeadID *uuid.UUID  `json:"leadId,omitempty"`
	TaskID *uuid.UUID  `json:"taskId,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// client is one connected SSE subscriber.
type client struct {
	changes chan Change
}

// Service manages SSE connections and broadcasts changes to all of them.
type Service struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.changes)
	}
}

// Broadcast fans a change out to every connected client. Slow clients drop
// entries instead of blocking the publisher.
func (s *Service) Broadcast(change Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		select {
		case c.changes <- change:
		default:
			s.log.Warn("change feed buffer full, dropping entry", "type", change.Type)
		}
	}
}

// Handler returns the gin handler for the SSE stream.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{changes: make(chan Change, 32)}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case change, ok := <-cl.changes:
				if !ok {
					return
				}
				data, _ := json.Marshal(change)
				c.SSEvent(change.Type, string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		close(c.changes)
	}
	s.clients = make(map[*client]struct{})
}
