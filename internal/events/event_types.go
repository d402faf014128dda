package events

import (
	"time"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketTransitioned EventType = "ticket_transitioned"
	EventTicketMoved        EventType = "ticket_moved"
	EventTicketClosed       EventType = "ticket_closed"
	EventMemberRegistered   EventType = "member_registered"
	EventMemberUpdated      EventType = "member_updated"
	EventMemberRemoved      EventType = "member_removed"
)

// Event represents a domain event emitted by services. Subject is the thread
// handle for ticket events and the crew handle for membership events.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	OrganizationID string    `json:"organization_id"`
	Subject        string    `json:"subject"`
	ActorID        string    `json:"actor_id"`
	Timestamp      time.Time `json:"timestamp"`
	Payload        any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CrewID           string  `json:"crew_id"`
	Name             string  `json:"name"`
	PreviousThreadID *string `json:"previous_thread_id,omitempty"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// TicketMovedPayload payload.
type TicketMovedPayload struct {
	FromCrewID    string `json:"from_crew_id"`
	ToCrewID      string `json:"to_crew_id"`
	NewThreadID   string `json:"new_thread_id"`
	CrossOrgMoved bool   `json:"cross_org"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Status domain.TicketStatus `json:"status"`
}

// MemberPayload is shared by the membership events.
type MemberPayload struct {
	IdentityID string            `json:"identity_id"`
	Access     domain.AccessRank `json:"access"`
	Upgraded   bool              `json:"upgraded,omitempty"`
}
