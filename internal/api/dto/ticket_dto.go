package dto

import (
	"time"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// CreateTicketRequest payload. The creator is the authenticated identity.
type CreateTicketRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TicketActionRequest payload for POST /tickets/:thread/actions/:action.
type TicketActionRequest struct {
	Reason string `json:"reason"`
}

// MoveTicketRequest payload.
type MoveTicketRequest struct {
	CrewID string `json:"crew_id"`
}

// TicketResponse describes one ticket record.
type TicketResponse struct {
	ThreadID         string              `json:"thread_id"`
	OrganizationID   string              `json:"organization_id"`
	CrewID           string              `json:"crew_id"`
	PreviousThreadID *string             `json:"previous_thread_id"`
	Name             string              `json:"name"`
	Content          string              `json:"content"`
	Status           domain.TicketStatus `json:"status"`
	CreatedBy        string              `json:"created_by"`
	UpdatedBy        string              `json:"updated_by"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	ClosedAt         *time.Time          `json:"closed_at"`
}

// MoveResponse carries both records of a move.
type MoveResponse struct {
	Source TicketResponse `json:"source"`
	Ticket TicketResponse `json:"ticket"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	ChangedBy  string                  `json:"changed_by"`
	OldValue   map[string]any          `json:"old_value"`
	NewValue   map[string]any          `json:"new_value"`
	CreatedAt  time.Time               `json:"created_at"`
}

// CrewReportResponse summarises one crew's open tickets.
type CrewReportResponse struct {
	Crew        CrewResponse     `json:"crew"`
	OwnerID     *string          `json:"owner_id"`
	MemberCount int              `json:"member_count"`
	Tickets     []TicketResponse `json:"tickets"`
}

// OrganizationReportResponse summarises every visible crew.
type OrganizationReportResponse struct {
	OrganizationID string               `json:"organization_id"`
	Crews          []CrewReportResponse `json:"crews"`
}
