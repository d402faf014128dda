package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crew-ticket-service/internal/api/dto"
	"github.com/spec-kit/crew-ticket-service/internal/service"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle commands.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /crews/:crew/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Content) == "" {
		return apperrors.NewValidationError("name and content required", nil)
	}

	out, err := h.service.Create(c.UserContext(), c.Params("crew"), service.TicketDraft{
		Name:      req.Name,
		Content:   req.Content,
		CreatedBy: principal.IdentityID,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, ticketResponse(out.Value), "Ticket created", out.Warnings)
}

// GetTicket GET /tickets/:thread.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("thread"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ticketResponse(ticket), "Ticket is "+statusLabel(ticket.Status), nil)
}

// Action POST /tickets/:thread/actions/:action.
func (h *TicketsHandler) Action(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	target, err := service.TargetForAction(c.Params("action"))
	if err != nil {
		return err
	}
	var req dto.TicketActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	out, err := h.service.Transition(c.UserContext(), c.Params("thread"), target, principal.IdentityID, strings.TrimSpace(req.Reason))
	if err != nil {
		return err
	}
	if out.Value == nil {
		return respond(c, http.StatusConflict, nil, "The ticket changed while it was being updated", out.Warnings)
	}
	return respond(c, http.StatusOK, ticketResponse(out.Value), "Ticket is now "+statusLabel(out.Value.Status), out.Warnings)
}

// Move POST /tickets/:thread/move.
func (h *TicketsHandler) Move(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.MoveTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.CrewID) == "" {
		return apperrors.NewValidationError("crew_id required", nil)
	}

	out, err := h.service.Move(c.UserContext(), c.Params("thread"), req.CrewID, principal.IdentityID)
	if err != nil {
		return err
	}
	resp := dto.MoveResponse{
		Source: ticketResponse(out.Value.Source),
		Ticket: ticketResponse(out.Value.Ticket),
	}
	return respond(c, http.StatusCreated, resp, "Ticket moved", out.Warnings)
}

// Close POST /tickets/:thread/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	out, err := h.service.Close(c.UserContext(), c.Params("thread"), principal.IdentityID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ticketResponse(out.Value), "Ticket closed", out.Warnings)
}

// Chain GET /tickets/:thread/chain.
func (h *TicketsHandler) Chain(c *fiber.Ctx) error {
	chain, err := h.service.Chain(c.UserContext(), c.Params("thread"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ticketResponses(chain), "", nil)
}

// History GET /tickets/:thread/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), c.Params("thread"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, historyResponses(entries), "", nil)
}

// CrewStatus GET /crews/:crew/status?channel=.
func (h *TicketsHandler) CrewStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	out, err := h.service.CrewStatus(c.UserContext(), c.Params("crew"), c.Query("channel"), principal.IdentityID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, crewReportResponse(out.Value), "Status posted", out.Warnings)
}

// OrganizationStatus GET /organizations/:org/status?channel=.
func (h *TicketsHandler) OrganizationStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	out, err := h.service.OrganizationStatus(c.UserContext(), c.Params("org"), c.Query("channel"), principal.IdentityID)
	if err != nil {
		return err
	}
	crews := make([]dto.CrewReportResponse, 0, len(out.Value.Crews))
	for i := range out.Value.Crews {
		crews = append(crews, crewReportResponse(&out.Value.Crews[i]))
	}
	resp := dto.OrganizationReportResponse{OrganizationID: out.Value.OrganizationID, Crews: crews}
	return respond(c, http.StatusOK, resp, "Status posted", out.Warnings)
}
