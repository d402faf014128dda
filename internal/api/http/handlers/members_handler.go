package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crew-ticket-service/internal/api/dto"
	"github.com/spec-kit/crew-ticket-service/internal/auth"
	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/service"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// MembersHandler exposes crew membership commands.
type MembersHandler struct {
	members *service.CrewMemberService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(members *service.CrewMemberService) *MembersHandler {
	return &MembersHandler{members: members}
}

// ListMembers GET /crews/:crew/members.
func (h *MembersHandler) ListMembers(c *fiber.Ctx) error {
	members, err := h.members.ListMembers(c.UserContext(), c.Params("crew"))
	if err != nil {
		return err
	}
	resp := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, memberResponse(&members[i]))
	}
	return respond(c, http.StatusOK, resp, "", nil)
}

// Register POST /crews/:crew/members. Identities may register themselves
// as member or subscriber; anything else needs an administrator.
func (h *MembersHandler) Register(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RegisterMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.IdentityID == "" {
		req.IdentityID = principal.IdentityID
	}
	access, err := parseAccess(req.Access, domain.AccessMember)
	if err != nil {
		return err
	}
	organizationID, err := h.crewOrganization(c, principal)
	if err != nil {
		return err
	}
	if req.IdentityID != principal.IdentityID || access == domain.AccessOwner {
		if err := h.requireAdmin(c, principal, organizationID); err != nil {
			return err
		}
	}

	result, err := h.members.RegisterMember(c.UserContext(), c.Params("crew"), req.IdentityID, access)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Registered as %s", result.Member.Access)
	if result.Upgraded {
		message = fmt.Sprintf("Upgraded to %s", result.Member.Access)
	}
	return respond(c, http.StatusOK, dto.RegisterMemberResponse{
		Member:   memberResponse(result.Member),
		Upgraded: result.Upgraded,
	}, message, nil)
}

// Update PATCH /crews/:crew/members/:identity. This is the administrative
// path and may lower privilege.
func (h *MembersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patch := domain.CrewMemberPatch{Name: req.Name, Icon: req.Icon}
	if req.Access != nil {
		access, err := parseAccess(*req.Access, 0)
		if err != nil {
			return err
		}
		patch.Access = &access
	}

	member, err := h.members.UpdateMember(c.UserContext(), c.Params("crew"), c.Params("identity"), patch)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, memberResponse(member), "Member updated", nil)
}

// Remove DELETE /crews/:crew/members/:identity. Identities may remove
// themselves; removing others needs an administrator.
func (h *MembersHandler) Remove(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	organizationID, err := h.crewOrganization(c, principal)
	if err != nil {
		return err
	}
	identityID := c.Params("identity")
	if identityID != principal.IdentityID {
		if err := h.requireAdmin(c, principal, organizationID); err != nil {
			return err
		}
	}

	if err := h.members.RemoveMember(c.UserContext(), c.Params("crew"), identityID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Member removed", nil)
}

// CrewOrganization resolves the organization owning the :crew parameter.
func (h *MembersHandler) CrewOrganization(c *fiber.Ctx) (string, error) {
	return h.members.CrewOrganization(c.UserContext(), c.Params("crew"))
}

func (h *MembersHandler) crewOrganization(c *fiber.Ctx, principal *auth.Principal) (string, error) {
	organizationID, err := h.CrewOrganization(c)
	if err != nil {
		return "", err
	}
	if err := auth.EnsureOrganization(principal, organizationID); err != nil {
		return "", err
	}
	return organizationID, nil
}

func (h *MembersHandler) requireAdmin(c *fiber.Ctx, principal *auth.Principal, organizationID string) error {
	admin, err := h.members.IsIdentityAdmin(c.UserContext(), organizationID, principal.IdentityID)
	if err != nil {
		return err
	}
	if !admin {
		return apperrors.NewForbidden("administrator required")
	}
	return nil
}
