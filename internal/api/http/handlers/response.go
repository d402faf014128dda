package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crew-ticket-service/internal/api/dto"
	"github.com/spec-kit/crew-ticket-service/internal/auth"
	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/service"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

func respond(c *fiber.Ctx, status int, data any, message string, warnings []service.Warning) error {
	return c.Status(status).JSON(dto.Envelope{
		Data:     data,
		Message:  message,
		Warnings: warningResponses(warnings),
	})
}

func warningResponses(warnings []service.Warning) []dto.WarningResponse {
	if len(warnings) == 0 {
		return nil
	}
	resp := make([]dto.WarningResponse, 0, len(warnings))
	for _, w := range warnings {
		item := dto.WarningResponse{Step: w.Step}
		if w.Err != nil {
			item.Error = w.Err.Error()
		}
		resp = append(resp, item)
	}
	return resp
}

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.IdentityID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ThreadID:         ticket.ThreadID,
		OrganizationID:   ticket.OrganizationID,
		CrewID:           ticket.CrewID,
		PreviousThreadID: ticket.PreviousThreadID,
		Name:             ticket.Name,
		Content:          ticket.Content,
		Status:           ticket.Status,
		CreatedBy:        ticket.CreatedBy,
		UpdatedBy:        ticket.UpdatedBy,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
		ClosedAt:         ticket.DeletedAt,
	}
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	resp := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, ticketResponse(&tickets[i]))
	}
	return resp
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ChangedBy:  entry.ChangedBy,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return resp
}

func crewResponse(crew *domain.Crew) dto.CrewResponse {
	return dto.CrewResponse{
		ID:             crew.ID,
		OrganizationID: crew.OrganizationID,
		TeamID:         crew.TeamID,
		Name:           crew.Name,
		ShortName:      crew.ShortName,
		RoleID:         crew.RoleID,
		IsSecureOnly:   crew.IsSecureOnly,
		HasMovePrompt:  crew.HasMovePrompt,
		CreatedAt:      crew.CreatedAt,
		DeletedAt:      crew.DeletedAt,
	}
}

func crewReportResponse(report *service.CrewReport) dto.CrewReportResponse {
	resp := dto.CrewReportResponse{
		Crew:        crewResponse(&report.Crew),
		MemberCount: report.MemberCount,
		Tickets:     ticketResponses(report.Tickets),
	}
	if report.Owner != nil {
		owner := report.Owner.IdentityID
		resp.OwnerID = &owner
	}
	return resp
}

func memberResponse(member *domain.CrewMember) dto.MemberResponse {
	return dto.MemberResponse{
		CrewID:     member.CrewID,
		IdentityID: member.IdentityID,
		Name:       member.Name,
		Icon:       member.Icon,
		Access:     member.Access.String(),
		CreatedAt:  member.CreatedAt,
		UpdatedAt:  member.UpdatedAt,
	}
}

func statusLabel(status domain.TicketStatus) string {
	return strings.ToLower(strings.ReplaceAll(string(status), "_", " "))
}
