package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/events"
	"github.com/spec-kit/crew-ticket-service/internal/gateway"
	"github.com/spec-kit/crew-ticket-service/internal/lock"
	"github.com/spec-kit/crew-ticket-service/internal/observability"
	"github.com/spec-kit/crew-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// CrewMemberService owns crew membership: registration, privilege changes and removal.
type CrewMemberService struct {
	crews      repository.CrewRepository
	members    repository.CrewMemberRepository
	gateway    gateway.Gateway
	locks      lock.Locker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// CrewMemberDependencies bundles collaborators for the membership service.
type CrewMemberDependencies struct {
	CrewRepo   repository.CrewRepository
	MemberRepo repository.CrewMemberRepository
	Gateway    gateway.Gateway
	Locker     lock.Locker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// IdentityResolution is the structured result of resolving an identity
// within the organization that owns a crew. It never carries an error;
// Message is suitable for display.
type IdentityResolution struct {
	Success      bool
	Message      string
	NotMember    bool
	Identity     *gateway.Identity
	Organization *gateway.Organization
}

// RegisterResult describes a successful registration.
type RegisterResult struct {
	Member   *domain.CrewMember
	Upgraded bool
}

// NewCrewMemberService constructs the service.
func NewCrewMemberService(deps CrewMemberDependencies) *CrewMemberService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CrewMemberService{
		crews:      deps.CrewRepo,
		members:    deps.MemberRepo,
		gateway:    deps.Gateway,
		locks:      locker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        now,
	}
}

// ResolveIdentity fetches identityID from the organization that owns crewID.
func (s *CrewMemberService) ResolveIdentity(ctx context.Context, identityID, crewID string) IdentityResolution {
	crew, err := s.crews.GetByID(ctx, crewID, true)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("crew lookup failed", zap.String("crew_id", crewID), zap.Error(err))
		}
		return IdentityResolution{Message: fmt.Sprintf("Unable to find crew %s", crewID)}
	}
	return s.resolveInOrganization(ctx, identityID, crew.OrganizationID)
}

func (s *CrewMemberService) resolveInOrganization(ctx context.Context, identityID, organizationID string) IdentityResolution {
	org, err := s.gateway.FetchOrganization(ctx, organizationID)
	if err != nil {
		s.logger.Error("organization lookup failed", zap.String("organization_id", organizationID), zap.Error(err))
		return IdentityResolution{Message: fmt.Sprintf("Unable to resolve organization %s", organizationID)}
	}

	identity, err := s.gateway.FetchIdentity(ctx, org.ID, identityID)
	if err != nil {
		notMember := errors.Is(err, gateway.ErrNotFound)
		if !notMember {
			s.logger.Error("identity lookup failed",
				zap.String("organization_id", org.ID),
				zap.String("identity_id", identityID),
				zap.Error(err))
		}
		return IdentityResolution{
			Message:      fmt.Sprintf("%s is not a member of %s", userMention(identityID), org.Name),
			NotMember:    notMember,
			Organization: org,
		}
	}

	return IdentityResolution{Success: true, Message: "Done", Identity: identity, Organization: org}
}

// IsAdmin reports the administrative flag of a resolved identity.
func (s *CrewMemberService) IsAdmin(identity *gateway.Identity) bool {
	return identity != nil && identity.IsAdmin
}

// IsIdentityAdmin resolves identityID inside organizationID and reports whether it is an administrator.
func (s *CrewMemberService) IsIdentityAdmin(ctx context.Context, organizationID, identityID string) (bool, error) {
	identity, err := s.gateway.FetchIdentity(ctx, organizationID, identityID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.NewInternalError(err)
	}
	return s.IsAdmin(identity), nil
}

// IsMemberAdmin resolves member inside the organization that owns its crew
// and reports whether it is an administrator. A member who left the
// organization is not one.
func (s *CrewMemberService) IsMemberAdmin(ctx context.Context, member *domain.CrewMember) (bool, error) {
	if member == nil {
		return false, nil
	}
	resolved := s.ResolveIdentity(ctx, member.IdentityID, member.CrewID)
	if !resolved.Success {
		if resolved.NotMember {
			return false, nil
		}
		return false, apperrors.NewInternalError(errors.New(resolved.Message))
	}
	return s.IsAdmin(resolved.Identity), nil
}

// CanViewCrew reports whether identityID belongs to the crew's organization
// and may view the crew channel.
func (s *CrewMemberService) CanViewCrew(ctx context.Context, crew *domain.Crew, identityID string) (bool, error) {
	resolved := s.resolveInOrganization(ctx, identityID, crew.OrganizationID)
	if !resolved.Success {
		if resolved.NotMember {
			return false, nil
		}
		return false, errors.New(resolved.Message)
	}
	return s.gateway.CanView(ctx, crew.OrganizationID, crew.ID, resolved.Identity.ID)
}

// CrewOrganization returns the organization that owns a live crew.
func (s *CrewMemberService) CrewOrganization(ctx context.Context, crewID string) (string, error) {
	crew, err := s.crews.GetByID(ctx, crewID, false)
	if err != nil {
		return "", crewLookupError(crewID, err)
	}
	return crew.OrganizationID, nil
}

// RegisterMember adds identityID to the crew at access, or upgrades an
// existing membership when access is strictly more privileged. It never
// lowers privilege.
func (s *CrewMemberService) RegisterMember(ctx context.Context, crewID, identityID string, access domain.AccessRank) (*RegisterResult, error) {
	if strings.TrimSpace(identityID) == "" {
		return nil, apperrors.NewValidationError("identity is required", nil)
	}
	if !access.Valid() {
		return nil, apperrors.NewValidationError("Invalid access rank", map[string]any{"access": int(access)})
	}

	crew, err := s.crews.GetByID(ctx, crewID, false)
	if err != nil {
		return nil, crewLookupError(crewID, err)
	}

	unlock, err := s.locks.Lock(ctx, memberLockKey(crew.ID, identityID))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer unlock()

	existing, err := s.members.Get(ctx, crew.ID, identityID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewInternalError(err)
	}

	if existing != nil {
		if !access.MorePrivilegedThan(existing.Access) {
			return nil, apperrors.NewConflict(
				fmt.Sprintf("You are already %s of %s", withArticle(existing.Access.String()), crew.Name),
				map[string]any{"access": existing.Access.String()},
			)
		}
		updated, err := s.members.Update(ctx, crew.ID, identityID, domain.CrewMemberPatch{Access: &access})
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if updated == nil {
			return nil, staleMemberError(existing.Name)
		}
		s.publishMemberEvent(ctx, events.EventMemberUpdated, updated, identityID, true)
		return &RegisterResult{Member: updated, Upgraded: true}, nil
	}

	resolved := s.ResolveIdentity(ctx, identityID, crew.ID)
	if !resolved.Success {
		return nil, apperrors.NewNotFoundMessage(resolved.Message, map[string]any{"identity_id": identityID})
	}

	member := &domain.CrewMember{
		CrewID:         crew.ID,
		IdentityID:     identityID,
		OrganizationID: crew.OrganizationID,
		Name:           resolved.Identity.DisplayName,
		Icon:           resolved.Identity.AvatarURL,
		Access:         access,
	}
	if err := s.members.Insert(ctx, member); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict(fmt.Sprintf("%s is already registered with %s", member.Name, crew.Name), nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := s.gateway.GrantRole(ctx, crew.OrganizationID, identityID, crew.RoleID); err != nil {
		s.logger.Error("failed to grant crew role",
			zap.String("crew_id", crew.ID),
			zap.String("identity_id", identityID),
			zap.Error(err))
		if delErr := s.members.Delete(ctx, crew.ID, identityID); delErr != nil {
			s.logger.Error("failed to roll back membership", zap.String("crew_id", crew.ID), zap.Error(delErr))
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("grant crew role: %w", err))
	}

	s.publishMemberEvent(ctx, events.EventMemberRegistered, member, identityID, false)
	return &RegisterResult{Member: member}, nil
}

// UpdateMember applies a partial update. It is the administrative path and
// may lower privilege.
func (s *CrewMemberService) UpdateMember(ctx context.Context, crewID, identityID string, patch domain.CrewMemberPatch) (*domain.CrewMember, error) {
	if patch.Empty() {
		return nil, apperrors.NewValidationError("Nothing to update", nil)
	}
	if patch.Access != nil && !patch.Access.Valid() {
		return nil, apperrors.NewValidationError("Invalid access rank", nil)
	}

	unlock, err := s.locks.Lock(ctx, memberLockKey(crewID, identityID))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	defer unlock()

	updated, err := s.members.Update(ctx, crewID, identityID, patch)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if updated == nil {
		return nil, staleMemberError(identityID)
	}
	s.publishMemberEvent(ctx, events.EventMemberUpdated, updated, identityID, false)
	return updated, nil
}

// RemoveMember revokes the crew role and deletes the membership. A role
// that is already gone counts as revoked. Any other revoke failure keeps
// the row so that removal can be retried.
func (s *CrewMemberService) RemoveMember(ctx context.Context, crewID, identityID string) error {
	crew, err := s.crews.GetByID(ctx, crewID, true)
	if err != nil {
		return crewLookupError(crewID, err)
	}

	unlock, err := s.locks.Lock(ctx, memberLockKey(crew.ID, identityID))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer unlock()

	member, err := s.members.Get(ctx, crew.ID, identityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("crew member", map[string]any{"identity_id": identityID})
		}
		return apperrors.NewInternalError(err)
	}

	resolved := s.ResolveIdentity(ctx, identityID, crew.ID)
	switch {
	case resolved.Success:
		if err := s.revokeRole(ctx, crew, identityID); err != nil {
			return err
		}
	case resolved.NotMember:
		s.logger.Info("identity left organization; skipping role revoke",
			zap.String("crew_id", crew.ID),
			zap.String("identity_id", identityID))
	default:
		return apperrors.NewInternalError(errors.New(resolved.Message))
	}

	if err := s.members.Delete(ctx, crew.ID, identityID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publishMemberEvent(ctx, events.EventMemberRemoved, member, identityID, false)
	return nil
}

func (s *CrewMemberService) revokeRole(ctx context.Context, crew *domain.Crew, identityID string) error {
	err := s.gateway.RevokeRole(ctx, crew.OrganizationID, identityID, crew.RoleID)
	if err == nil || errors.Is(err, gateway.ErrRoleNotHeld) {
		return nil
	}

	identity, fetchErr := s.gateway.FetchIdentity(ctx, crew.OrganizationID, identityID)
	if fetchErr == nil && !identity.HasRole(crew.RoleID) {
		return nil
	}

	s.logger.Error("failed to remove crew role",
		zap.String("crew_id", crew.ID),
		zap.String("identity_id", identityID),
		zap.Error(err))
	return apperrors.NewInternalError(fmt.Errorf("revoke crew role: %w", err))
}

// HandleDeparture deletes every membership the identity held in the
// organization. The identity is gone, so no role can be revoked.
func (s *CrewMemberService) HandleDeparture(ctx context.Context, organizationID, identityID string) (int, error) {
	memberships, err := s.members.ListByIdentity(ctx, organizationID, identityID)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}

	removed := 0
	for i := range memberships {
		member := memberships[i]
		if err := s.deleteMembership(ctx, &member); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *CrewMemberService) deleteMembership(ctx context.Context, member *domain.CrewMember) error {
	unlock, err := s.locks.Lock(ctx, memberLockKey(member.CrewID, member.IdentityID))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer unlock()

	if err := s.members.Delete(ctx, member.CrewID, member.IdentityID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.publishMemberEvent(ctx, events.EventMemberRemoved, member, member.IdentityID, false)
	return nil
}

// ListMembers returns the members of a crew, most privileged first.
func (s *CrewMemberService) ListMembers(ctx context.Context, crewID string) ([]domain.CrewMember, error) {
	if _, err := s.crews.GetByID(ctx, crewID, true); err != nil {
		return nil, crewLookupError(crewID, err)
	}
	return s.members.ListByCrew(ctx, crewID)
}

func (s *CrewMemberService) publishMemberEvent(ctx context.Context, eventType events.EventType, member *domain.CrewMember, actorID string, upgraded bool) {
	s.metrics.RecordOperation(string(eventType))
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		OrganizationID: member.OrganizationID,
		Subject:        member.CrewID,
		ActorID:        actorID,
		Timestamp:      s.now(),
		Payload: events.MemberPayload{
			IdentityID: member.IdentityID,
			Access:     member.Access,
			Upgraded:   upgraded,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func memberLockKey(crewID, identityID string) string {
	return "member:" + crewID + ":" + identityID
}

func crewLookupError(crewID string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("crew", map[string]any{"crew_id": crewID})
	}
	return apperrors.NewInternalError(err)
}

func staleMemberError(name string) error {
	return apperrors.NewNotFoundMessage(fmt.Sprintf("Failed to update crew member record for %s", name), nil)
}
