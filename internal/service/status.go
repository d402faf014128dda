package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/gateway"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// CrewReport summarises the open work of one crew.
type CrewReport struct {
	Crew        domain.Crew
	Owner       *domain.CrewMember
	MemberCount int
	Tickets     []domain.Ticket
}

// OrganizationReport summarises every crew the requester may see.
type OrganizationReport struct {
	OrganizationID string
	Crews          []CrewReport
}

// CrewStatus reports a crew's open tickets into channelID. The requester
// must be able to view the crew channel, and secure-only crews report only
// into private channels.
func (s *TicketService) CrewStatus(ctx context.Context, crewID, channelID, requesterID string) (Outcome[*CrewReport], error) {
	var out Outcome[*CrewReport]

	crew, err := s.crews.GetByID(ctx, crewID, false)
	if err != nil {
		return out, crewLookupError(crewID, err)
	}

	canView, err := s.identities.CanViewCrew(ctx, crew, requesterID)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}
	if !canView {
		return out, apperrors.NewForbidden("You do not have access to that crew")
	}

	channel, err := s.targetChannel(ctx, crew.OrganizationID, channelID)
	if err != nil {
		return out, err
	}
	if crew.IsSecureOnly && !channel.IsPrivate {
		return out, apperrors.NewForbidden("This channel is not secure")
	}

	report, err := s.crewReport(ctx, *crew)
	if err != nil {
		return out, err
	}
	out.Value = report

	w := newWarner(s.logger, s.metrics, zap.String("crew_id", crew.ID))
	w.add("status_message", s.gateway.SendMessage(ctx, channel.ID, gateway.MessagePayload{
		Embeds: []gateway.Embed{crewStatusEmbed(report)},
	}))
	out.Warnings = w.warnings()
	return out, nil
}

// OrganizationStatus reports every visible crew of an organization into
// channelID. Crews the requester cannot view, and secure-only crews when the
// channel is not private, are left out.
func (s *TicketService) OrganizationStatus(ctx context.Context, organizationID, channelID, requesterID string) (Outcome[*OrganizationReport], error) {
	var out Outcome[*OrganizationReport]

	channel, err := s.targetChannel(ctx, organizationID, channelID)
	if err != nil {
		return out, err
	}

	crews, err := s.crews.ListByOrganization(ctx, organizationID)
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}

	w := newWarner(s.logger, s.metrics, zap.String("organization_id", organizationID))
	report := &OrganizationReport{OrganizationID: organizationID}
	for _, crew := range crews {
		if crew.IsSecureOnly && !channel.IsPrivate {
			continue
		}
		canView, err := s.identities.CanViewCrew(ctx, &crew, requesterID)
		if err != nil {
			w.add("permission_check", fmt.Errorf("crew %s: %w", crew.ID, err))
			continue
		}
		if !canView {
			continue
		}
		crewReport, err := s.crewReport(ctx, crew)
		if err != nil {
			return out, err
		}
		report.Crews = append(report.Crews, *crewReport)
	}
	out.Value = report

	w.add("status_message", s.gateway.SendMessage(ctx, channel.ID, gateway.MessagePayload{
		Embeds: []gateway.Embed{organizationStatusEmbed(report)},
	}))
	out.Warnings = w.warnings()
	return out, nil
}

func (s *TicketService) targetChannel(ctx context.Context, organizationID, channelID string) (*gateway.Channel, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, apperrors.NewValidationError("Invalid channel", nil)
	}
	channel, err := s.gateway.FetchChannel(ctx, organizationID, channelID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, apperrors.NewValidationError("Invalid channel", map[string]any{"channel_id": channelID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !channel.IsText {
		return nil, apperrors.NewValidationError("Invalid channel", map[string]any{"channel_id": channelID})
	}
	return channel, nil
}

func (s *TicketService) crewReport(ctx context.Context, crew domain.Crew) (*CrewReport, error) {
	tickets, err := s.tickets.ListActiveByCrew(ctx, crew.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	members, err := s.members.ListByCrew(ctx, crew.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	report := &CrewReport{Crew: crew, MemberCount: len(members), Tickets: tickets}
	for i := range members {
		if members[i].Access == domain.AccessOwner {
			owner := members[i]
			report.Owner = &owner
			break
		}
	}
	return report, nil
}

func leader(owner *domain.CrewMember) string {
	if owner == nil {
		return "nobody"
	}
	return userMention(owner.IdentityID)
}

func crewStatusEmbed(report *CrewReport) gateway.Embed {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is led by %s.\n\n**Active Tickets**\n", channelMention(report.Crew.ID), leader(report.Owner))
	if len(report.Tickets) == 0 {
		b.WriteString("None")
	}
	for _, ticket := range report.Tickets {
		fmt.Fprintf(&b, "- %s from %s\n", channelMention(ticket.ThreadID), userMention(ticket.CreatedBy))
	}
	return gateway.Embed{Title: "Tickets: " + report.Crew.Name, Color: "DarkGreen", Description: b.String()}
}

func organizationStatusEmbed(report *OrganizationReport) gateway.Embed {
	var lines []string
	for _, crew := range report.Crews {
		lines = append(lines, fmt.Sprintf("- %s (%d members) led by %s",
			channelMention(crew.Crew.ID), crew.MemberCount, leader(crew.Owner)))
		for _, ticket := range crew.Tickets {
			lines = append(lines, "  - "+channelMention(ticket.ThreadID))
		}
	}
	description := strings.Join(lines, "\n")
	if description == "" {
		description = "None"
	}
	return gateway.Embed{Title: "Ticket Status", Color: "DarkGreen", Description: description}
}
