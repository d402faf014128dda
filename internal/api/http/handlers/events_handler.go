package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crew-ticket-service/internal/api/dto"
	"github.com/spec-kit/crew-ticket-service/internal/service"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// EventsHandler receives gateway event deliveries.
type EventsHandler struct {
	tickets *service.TicketService
	members *service.CrewMemberService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(tickets *service.TicketService, members *service.CrewMemberService) *EventsHandler {
	return &EventsHandler{tickets: tickets, members: members}
}

// MemberDeparted POST /events/member-departed.
func (h *EventsHandler) MemberDeparted(c *fiber.Ctx) error {
	var req dto.MemberDepartedEvent
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.OrganizationID == "" || req.IdentityID == "" {
		return apperrors.NewValidationError("organization_id and identity_id required", nil)
	}
	removed, err := h.members.HandleDeparture(c.UserContext(), req.OrganizationID, req.IdentityID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"removed": removed}, "", nil)
}

// ThreadUpdated POST /events/thread-updated.
func (h *EventsHandler) ThreadUpdated(c *fiber.Ctx) error {
	var req dto.ThreadUpdatedEvent
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ThreadID == "" {
		return apperrors.NewValidationError("thread_id required", nil)
	}
	closed, err := h.tickets.HandleThreadUpdated(c.UserContext(), service.ThreadUpdate{
		ThreadID:     req.ThreadID,
		PreviousTags: req.PreviousTags,
		CurrentTags:  req.CurrentTags,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"closed": closed}, "", nil)
}

// ThreadCreated POST /events/thread-created.
func (h *EventsHandler) ThreadCreated(c *fiber.Ctx) error {
	var req dto.ThreadCreatedEvent
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.ThreadID == "" {
		return apperrors.NewValidationError("thread_id required", nil)
	}
	attached, err := h.tickets.AttachControls(c.UserContext(), req.ThreadID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"attached": attached}, "", nil)
}
