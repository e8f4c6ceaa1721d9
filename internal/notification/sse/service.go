// Package sse provides Server-Sent Events support for live dashboards:
// technician positions and proposal changes.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"repairdesk_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventLocationFix     EventType = "location_fix"
	EventLocationFrame   EventType = "location_frame"
	EventProposalCreated EventType = "proposal_created"
	EventProposalExpired EventType = "proposal_expired"
	EventProposalNoSlots EventType = "proposal_no_slots"
)

const (
	clientBufferSize     = 64
	technicianQueryParam = "technicianId"
)

// Event represents an SSE event payload
type Event struct {
	Type         EventType  `json:"type"`
	TechnicianID *uuid.UUID `json:"technicianId,omitempty"`
	TicketID     *uuid.UUID `json:"ticketId,omitempty"`
	Data         any        `json:"data,omitempty"`
}

// client is one connected dashboard. A non-nil technician narrows location
// events to that technician.
type client struct {
	technician *uuid.UUID
	events     chan Event
	closed     bool
}

func (c *client) wants(e Event) bool {
	if c.technician == nil || e.TechnicianID == nil {
		return true
	}
	return *c.technician == *e.TechnicianID
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
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

	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// ClientCount returns the number of connected clients.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Publish broadcasts an event without blocking; slow clients drop events.
func (s *Service) Publish(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for c := range s.clients {
		if c.closed || !c.wants(event) {
			continue
		}
		select {
		case c.events <- event:
			delivered++
		default:
			s.log.Warn("sse buffer full, dropping event", "type", string(event.Type))
		}
	}

	s.log.Debug("sse event published", "type", string(event.Type), "clients", delivered)
}

// Handler returns a Gin handler for SSE connections. An optional
// technicianId query parameter narrows location events.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cl := &client{events: make(chan Event, clientBufferSize)}
		if raw := c.Query(technicianQueryParam); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid technicianId"})
				return
			}
			cl.technician = &id
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"technicianId": cl.technician})
		c.Writer.Flush()

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
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
		if !c.closed {
			c.closed = true
			close(c.events)
		}
	}
	s.clients = make(map[*client]struct{})
}
