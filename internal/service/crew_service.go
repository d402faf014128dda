package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/observability"
	"github.com/spec-kit/crew-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// CrewService registers teams and crews and maintains team tag templates.
type CrewService struct {
	teams   repository.TeamRepository
	crews   repository.CrewRepository
	tags    TagResolver
	members *CrewMemberService
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// CrewDependencies bundles collaborators for the registry.
type CrewDependencies struct {
	TeamRepo repository.TeamRepository
	CrewRepo repository.CrewRepository
	Tags     TagResolver
	Members  *CrewMemberService
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Now      func() time.Time
}

// TeamInput registers a team.
type TeamInput struct {
	ID             string
	OrganizationID string
	Name           string
	ForumID        string
	RoleID         string
}

// TeamTagInput maps one canonical tag to a forum label.
type TeamTagInput struct {
	Name       string
	ExternalID string
	Kind       domain.TagKind
}

// CrewInput registers a crew under a team.
type CrewInput struct {
	ID            string
	TeamID        string
	Name          string
	ShortName     string
	RoleID        string
	IsSecureOnly  bool
	HasMovePrompt bool
}

// CrewPatch is a partial crew update.
type CrewPatch struct {
	Name          *string
	ShortName     *string
	RoleID        *string
	IsSecureOnly  *bool
	HasMovePrompt *bool
}

// NewCrewService constructs the registry.
func NewCrewService(deps CrewDependencies) *CrewService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CrewService{
		teams:   deps.TeamRepo,
		crews:   deps.CrewRepo,
		tags:    deps.Tags,
		members: deps.Members,
		logger:  logger,
		metrics: deps.Metrics,
		now:     now,
	}
}

// RegisterTeam records a team and its forum.
func (s *CrewService) RegisterTeam(ctx context.Context, input TeamInput) (*domain.Team, error) {
	team := &domain.Team{
		ID:             strings.TrimSpace(input.ID),
		OrganizationID: strings.TrimSpace(input.OrganizationID),
		Name:           strings.TrimSpace(input.Name),
		ForumID:        strings.TrimSpace(input.ForumID),
		RoleID:         strings.TrimSpace(input.RoleID),
	}
	if team.ID == "" || team.OrganizationID == "" || team.Name == "" || team.ForumID == "" {
		return nil, apperrors.NewValidationError("Invalid team", map[string]any{
			"required": []string{"id", "organization_id", "name", "forum_id"},
		})
	}
	if err := s.teams.Create(ctx, team); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("Team already registered", map[string]any{"team_id": team.ID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.metrics.RecordOperation("team_registered")
	return team, nil
}

// SetTeamTags upserts tag templates for a team and drops its cached mapping.
func (s *CrewService) SetTeamTags(ctx context.Context, teamID string, inputs []TeamTagInput) ([]domain.TeamTag, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, teamLookupError(teamID, err)
	}

	for _, input := range inputs {
		tag := &domain.TeamTag{
			TeamID:     teamID,
			Name:       strings.TrimSpace(input.Name),
			ExternalID: strings.TrimSpace(input.ExternalID),
			Kind:       input.Kind,
		}
		if err := validateTag(tag); err != nil {
			return nil, err
		}
		if err := s.teams.UpsertTag(ctx, tag); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	if err := s.tags.Invalidate(ctx, teamID); err != nil {
		s.logger.Warn("failed to invalidate tag cache", zap.String("team_id", teamID), zap.Error(err))
	}

	templates, err := s.teams.ListTags(ctx, teamID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return templates, nil
}

func validateTag(tag *domain.TeamTag) error {
	if tag.Name == "" || tag.ExternalID == "" {
		return apperrors.NewValidationError("Tag name and external id are required", nil)
	}
	if !tag.Kind.Valid() {
		return apperrors.NewValidationError("Unknown tag kind", map[string]any{"kind": tag.Kind})
	}
	if tag.Kind == domain.TagKindLifecycle && !domain.TicketStatus(tag.Name).Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is not a lifecycle state", tag.Name), nil)
	}
	return nil
}

// RegisterCrew records a crew and makes the registrar its owner. Failing
// to register the owner does not undo the crew.
func (s *CrewService) RegisterCrew(ctx context.Context, input CrewInput, registrarID string) (Outcome[*domain.Crew], error) {
	var out Outcome[*domain.Crew]

	crew := &domain.Crew{
		ID:            strings.TrimSpace(input.ID),
		TeamID:        strings.TrimSpace(input.TeamID),
		Name:          strings.TrimSpace(input.Name),
		ShortName:     strings.TrimSpace(input.ShortName),
		RoleID:        strings.TrimSpace(input.RoleID),
		IsSecureOnly:  input.IsSecureOnly,
		HasMovePrompt: input.HasMovePrompt,
	}
	if crew.ID == "" || crew.TeamID == "" || crew.Name == "" || crew.RoleID == "" {
		return out, apperrors.NewValidationError("Invalid crew", map[string]any{
			"required": []string{"id", "team_id", "name", "role_id"},
		})
	}

	team, err := s.teams.GetByID(ctx, crew.TeamID)
	if err != nil {
		return out, teamLookupError(crew.TeamID, err)
	}
	crew.OrganizationID = team.OrganizationID

	if err := s.crews.Create(ctx, crew); err != nil {
		if repository.IsUniqueViolation(err) {
			return out, apperrors.NewConflict("Crew already registered", map[string]any{"crew_id": crew.ID})
		}
		return out, apperrors.NewInternalError(err)
	}
	out.Value = crew
	s.metrics.RecordOperation("crew_registered")

	if registrarID != "" && s.members != nil {
		w := newWarner(s.logger, s.metrics, zap.String("crew_id", crew.ID))
		_, err := s.members.RegisterMember(ctx, crew.ID, registrarID, domain.AccessOwner)
		w.add("owner_registration", err)
		out.Warnings = w.warnings()
	}
	return out, nil
}

// UpdateCrew applies a partial update to a live crew.
func (s *CrewService) UpdateCrew(ctx context.Context, crewID string, patch CrewPatch) (*domain.Crew, error) {
	crew, err := s.crews.GetByID(ctx, crewID, false)
	if err != nil {
		return nil, crewLookupError(crewID, err)
	}
	if patch.Name != nil {
		crew.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.ShortName != nil {
		crew.ShortName = strings.TrimSpace(*patch.ShortName)
	}
	if patch.RoleID != nil {
		crew.RoleID = strings.TrimSpace(*patch.RoleID)
	}
	if patch.IsSecureOnly != nil {
		crew.IsSecureOnly = *patch.IsSecureOnly
	}
	if patch.HasMovePrompt != nil {
		crew.HasMovePrompt = *patch.HasMovePrompt
	}
	if crew.Name == "" || crew.RoleID == "" {
		return nil, apperrors.NewValidationError("Crew name and role are required", nil)
	}
	if err := s.crews.Update(ctx, crew); err != nil {
		return nil, crewLookupError(crewID, err)
	}
	return crew, nil
}

// DeleteCrew soft deletes a crew and removes its members the way
// RemoveMember does. The crew stays deleted when a removal fails; each
// failure is reported as a warning and the membership row is kept for a
// later retry. Value is the number of memberships removed.
func (s *CrewService) DeleteCrew(ctx context.Context, crewID string) (Outcome[int], error) {
	var out Outcome[int]

	crew, err := s.crews.GetByID(ctx, crewID, false)
	if err != nil {
		return out, crewLookupError(crewID, err)
	}
	if err := s.crews.SoftDelete(ctx, crew.ID, s.now()); err != nil {
		return out, crewLookupError(crew.ID, err)
	}
	s.metrics.RecordOperation("crew_deleted")

	if s.members == nil {
		return out, nil
	}
	w := newWarner(s.logger, s.metrics, zap.String("crew_id", crew.ID))
	members, err := s.members.ListMembers(ctx, crew.ID)
	if err != nil {
		w.add("member_removal", err)
		out.Warnings = w.warnings()
		return out, nil
	}
	for _, member := range members {
		if err := s.members.RemoveMember(ctx, crew.ID, member.IdentityID); err != nil {
			w.add("member_removal", fmt.Errorf("%s: %w", member.IdentityID, err))
			continue
		}
		out.Value++
	}
	out.Warnings = w.warnings()
	return out, nil
}

// TeamOrganization returns the organization that owns a team.
func (s *CrewService) TeamOrganization(ctx context.Context, teamID string) (string, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return "", teamLookupError(teamID, err)
	}
	return team.OrganizationID, nil
}

// GetCrew returns a live crew.
func (s *CrewService) GetCrew(ctx context.Context, crewID string) (*domain.Crew, error) {
	crew, err := s.crews.GetByID(ctx, crewID, false)
	if err != nil {
		return nil, crewLookupError(crewID, err)
	}
	return crew, nil
}

// ListCrews returns the live crews of an organization.
func (s *CrewService) ListCrews(ctx context.Context, organizationID string) ([]domain.Crew, error) {
	crews, err := s.crews.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return crews, nil
}

func teamLookupError(teamID string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
	}
	return apperrors.NewInternalError(err)
}
