// Package sse streams lead activity to connected dashboards with Server-Sent Events.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"renolead_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType names the SSE event sent to the browser.
type EventType string

const (
	EventLeadCreated       EventType = "lead_created"
	EventLeadScored        EventType = "lead_scored"
	EventLeadAssigned      EventType = "lead_assigned"
	EventLeadStatusChanged EventType = "lead_status_changed"
	EventFeedbackSubmitted EventType = "feedback_submitted"
)

const clientBuffer = 32

// Event is the payload written to the stream.
type Event struct {
	Type   EventType   `json:"type"`
	LeadID uuid.UUID   `json:"leadId,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Subscriber describes who is listening. Admins get every event; a contractor
// only gets events for leads routed to ContractorID.
type Subscriber struct {
	UserID       uuid.UUID
	Admin        bool
	ContractorID *uuid.UUID
}

type client struct {
	sub    Subscriber
	events chan Event
}

// Service tracks connected clients and fans events out to them.
type Service struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{clients: make(map[*client]struct{}), log: log}
}

func (s *Service) addClient(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.events)
}

// ClientCount reports connected clients.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// PublishToAdmins sends the event to every admin connection.
func (s *Service) PublishToAdmins(event Event) {
	s.publish(event, func(sub Subscriber) bool { return sub.Admin })
}

// PublishToContractors sends the event to admins and to the listed contractors.
func (s *Service) PublishToContractors(contractorIDs []uuid.UUID, event Event) {
	wanted := make(map[uuid.UUID]struct{}, len(contractorIDs))
	for _, id := range contractorIDs {
		wanted[id] = struct{}{}
	}
	s.publish(event, func(sub Subscriber) bool {
		if sub.Admin {
			return true
		}
		if sub.ContractorID == nil {
			return false
		}
		_, ok := wanted[*sub.ContractorID]
		return ok
	})
}

func (s *Service) publish(event Event, match func(Subscriber) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for c := range s.clients {
		if !match(c.sub) {
			continue
		}
		select {
		case c.events <- event:
			delivered++
		default:
			s.log.Warn("sse buffer full, dropping event", "userId", c.sub.UserID, "type", event.Type)
		}
	}
	s.log.Debug("sse event published", "type", event.Type, "leadId", event.LeadID, "clients", delivered)
}

// Handler streams events to the caller resolved by subscriber.
func (s *Service) Handler(subscriber func(*gin.Context) (Subscriber, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, ok := subscriber(c)
		if !ok {
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{sub: sub, events: make(chan Event, clientBuffer)}
		if !s.addClient(cl) {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": sub.UserID, "admin": sub.Admin})
		c.Writer.Flush()

		done := c.Request.Context().Done()
		for {
			select {
			case <-done:
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					s.log.Error("failed to encode sse event", "type", event.Type, "error", err)
					continue
				}
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client. Later connections are refused.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		close(c.events)
	}
	s.clients = make(map[*client]struct{})
	s.closed = true
}
