package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crew-ticket-service/internal/api/dto"
	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/service"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// CrewsHandler exposes the team and crew registry.
type CrewsHandler struct {
	registry *service.CrewService
}

// NewCrewsHandler constructs handler.
func NewCrewsHandler(registry *service.CrewService) *CrewsHandler {
	return &CrewsHandler{registry: registry}
}

// RegisterTeam POST /teams.
func (h *CrewsHandler) RegisterTeam(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RegisterTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.OrganizationID == "" {
		req.OrganizationID = principal.OrganizationID
	}
	if req.OrganizationID != principal.OrganizationID {
		return apperrors.NewForbidden("You can only register teams in your own organization")
	}

	team, err := h.registry.RegisterTeam(c.UserContext(), service.TeamInput{
		ID:             req.ID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		ForumID:        req.ForumID,
		RoleID:         req.RoleID,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.TeamResponse{
		ID:             team.ID,
		OrganizationID: team.OrganizationID,
		Name:           team.Name,
		ForumID:        team.ForumID,
		RoleID:         team.RoleID,
	}, "Team registered", nil)
}

// SetTeamTags PUT /teams/:team/tags.
func (h *CrewsHandler) SetTeamTags(c *fiber.Ctx) error {
	var req dto.SetTeamTagsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	inputs := make([]service.TeamTagInput, 0, len(req.Tags))
	for _, tag := range req.Tags {
		inputs = append(inputs, service.TeamTagInput{Name: tag.Name, ExternalID: tag.ExternalID, Kind: tag.Kind})
	}

	templates, err := h.registry.SetTeamTags(c.UserContext(), c.Params("team"), inputs)
	if err != nil {
		return err
	}
	resp := make([]dto.TeamTagResponse, 0, len(templates))
	for _, tag := range templates {
		resp = append(resp, dto.TeamTagResponse{Name: tag.Name, ExternalID: tag.ExternalID, Kind: tag.Kind})
	}
	return respond(c, http.StatusOK, resp, "Tags updated", nil)
}

// RegisterCrew POST /crews. The registrar becomes the crew owner.
func (h *CrewsHandler) RegisterCrew(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RegisterCrewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	out, err := h.registry.RegisterCrew(c.UserContext(), service.CrewInput{
		ID:            req.ID,
		TeamID:        req.TeamID,
		Name:          req.Name,
		ShortName:     req.ShortName,
		RoleID:        req.RoleID,
		IsSecureOnly:  req.IsSecureOnly,
		HasMovePrompt: req.HasMovePrompt,
	}, principal.IdentityID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, crewResponse(out.Value), "Crew registered", out.Warnings)
}

// UpdateCrew PATCH /crews/:crew.
func (h *CrewsHandler) UpdateCrew(c *fiber.Ctx) error {
	var req dto.UpdateCrewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	crew, err := h.registry.UpdateCrew(c.UserContext(), c.Params("crew"), service.CrewPatch{
		Name:          req.Name,
		ShortName:     req.ShortName,
		RoleID:        req.RoleID,
		IsSecureOnly:  req.IsSecureOnly,
		HasMovePrompt: req.HasMovePrompt,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, crewResponse(crew), "Crew updated", nil)
}

// DeleteCrew DELETE /crews/:crew. Members are removed along with the crew.
func (h *CrewsHandler) DeleteCrew(c *fiber.Ctx) error {
	out, err := h.registry.DeleteCrew(c.UserContext(), c.Params("crew"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, fiber.Map{"members_removed": out.Value}, "Crew deleted", out.Warnings)
}

// GetCrew GET /crews/:crew.
func (h *CrewsHandler) GetCrew(c *fiber.Ctx) error {
	crew, err := h.registry.GetCrew(c.UserContext(), c.Params("crew"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, crewResponse(crew), "", nil)
}

// ListCrews GET /organizations/:org/crews.
func (h *CrewsHandler) ListCrews(c *fiber.Ctx) error {
	crews, err := h.registry.ListCrews(c.UserContext(), c.Params("org"))
	if err != nil {
		return err
	}
	resp := make([]dto.CrewResponse, 0, len(crews))
	for i := range crews {
		resp = append(resp, crewResponse(&crews[i]))
	}
	return respond(c, http.StatusOK, resp, "", nil)
}

// CrewOrganization resolves the organization owning the :crew parameter.
func (h *CrewsHandler) CrewOrganization(c *fiber.Ctx) (string, error) {
	crew, err := h.registry.GetCrew(c.UserContext(), c.Params("crew"))
	if err != nil {
		return "", err
	}
	return crew.OrganizationID, nil
}

// TeamOrganization resolves the organization owning the :team parameter.
func (h *CrewsHandler) TeamOrganization(c *fiber.Ctx) (string, error) {
	return h.registry.TeamOrganization(c.UserContext(), c.Params("team"))
}

// NewCrewOrganization resolves the organization owning the team a crew is
// being registered under.
func (h *CrewsHandler) NewCrewOrganization(c *fiber.Ctx) (string, error) {
	var req dto.RegisterCrewRequest
	if err := parseBody(c, &req); err != nil {
		return "", err
	}
	if req.TeamID == "" {
		return "", apperrors.NewValidationError("Invalid crew", map[string]any{"required": []string{"team_id"}})
	}
	return h.registry.TeamOrganization(c.UserContext(), req.TeamID)
}

func parseAccess(value string, fallback domain.AccessRank) (domain.AccessRank, error) {
	if value == "" {
		return fallback, nil
	}
	rank, err := domain.ParseAccessRank(value)
	if err != nil {
		return 0, apperrors.NewValidationError("Invalid access rank", map[string]any{"access": value})
	}
	return rank, nil
}
