package ws

import (
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/orchestrator"
)

type EventType string

const (
	EventStatus           EventType = "attempt.status"
	EventIdentityEnrolled EventType = "identity.enrolled"
	EventIdentityDeleted  EventType = "identity.deleted"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type identityData struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// StatusUpdated forwards an orchestrator update, see Orchestrator.OnUpdate
func (h *Hub) StatusUpdated(u orchestrator.Update) {
	h.Broadcast(EventStatus, u)
}

func (h *Hub) IdentityEnrolled(identity *domain.EnrolledIdentity) {
	h.Broadcast(EventIdentityEnrolled, identityData{ID: identity.ID, DisplayName: identity.DisplayName})
}

func (h *Hub) IdentityDeleted(id string) {
	h.Broadcast(EventIdentityDeleted, identityData{ID: id})
}
