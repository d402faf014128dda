package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. The values double as
// the canonical lifecycle tag names resolved per team.
type TicketStatus string

const (
	TicketStatusTriage     TicketStatus = "TRIAGE"
	TicketStatusAccepted   TicketStatus = "ACCEPTED"
	TicketStatusDeclined   TicketStatus = "DECLINED"
	TicketStatusAbandoned  TicketStatus = "ABANDONED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusRepeatable TicketStatus = "REPEATABLE"
	TicketStatusDone       TicketStatus = "DONE"
	TicketStatusMoved      TicketStatus = "MOVED"
)

// TicketStatuses lists every lifecycle state.
var TicketStatuses = []TicketStatus{
	TicketStatusTriage,
	TicketStatusAccepted,
	TicketStatusDeclined,
	TicketStatusAbandoned,
	TicketStatusInProgress,
	TicketStatusRepeatable,
	TicketStatusDone,
	TicketStatusMoved,
}

// Valid reports whether s is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the working life of a ticket.
// Tags for these states close the ticket when they appear on its thread.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusDeclined, TicketStatusAbandoned, TicketStatusDone, TicketStatusMoved:
		return true
	}
	return false
}

// Ticket is a request routed to a crew, keyed by its thread handle.
type Ticket struct {
	ThreadID         string
	OrganizationID   string
	CrewID           string
	PreviousThreadID *string
	Name             string
	Content          string
	Status           TicketStatus
	CreatedBy        string
	UpdatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Closed reports whether the ticket has been soft deleted.
func (t *Ticket) Closed() bool {
	return t.DeletedAt != nil
}
