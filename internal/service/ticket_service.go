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

	"github.com/spec-kit/crew-ticket-service/internal/config"
	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/events"
	"github.com/spec-kit/crew-ticket-service/internal/gateway"
	"github.com/spec-kit/crew-ticket-service/internal/lock"
	"github.com/spec-kit/crew-ticket-service/internal/observability"
	"github.com/spec-kit/crew-ticket-service/internal/repository"
	"github.com/spec-kit/crew-ticket-service/internal/tags"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// TagResolver maps canonical tags to a team's external label ids.
type TagResolver interface {
	ResolveLifecycleTag(ctx context.Context, teamID string, status domain.TicketStatus) (string, bool, error)
	ResolveCrewTag(ctx context.Context, teamID, shortName string) (string, bool, error)
	DefaultTags(ctx context.Context, teamID string) ([]string, error)
	TagMap(ctx context.Context, teamID string) (tags.Map, error)
	Invalidate(ctx context.Context, teamID string) error
}

// TicketService is the ticket lifecycle engine: create, transition, move and close.
type TicketService struct {
	tickets    repository.TicketRepository
	crews      repository.CrewRepository
	teams      repository.TeamRepository
	members    repository.CrewMemberRepository
	history    repository.TicketHistoryRepository
	tags       TagResolver
	gateway    gateway.Gateway
	identities *CrewMemberService
	locks      lock.Locker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.TicketConfig
	botID      string
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	CrewRepo      repository.CrewRepository
	TeamRepo      repository.TeamRepository
	MemberRepo    repository.CrewMemberRepository
	HistoryRepo   repository.TicketHistoryRepository
	Tags          TagResolver
	Gateway       gateway.Gateway
	Members       *CrewMemberService
	Locker        lock.Locker
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Config        config.TicketConfig
	BotIdentityID string
	Now           func() time.Time
}

// TicketDraft is the input of Create. UpdatedBy defaults to CreatedBy.
type TicketDraft struct {
	Name             string
	Content          string
	CreatedBy        string
	UpdatedBy        string
	PreviousThreadID *string
}

// MoveResult holds both records produced by a move.
type MoveResult struct {
	Source *domain.Ticket
	Ticket *domain.Ticket
}

// ThreadUpdate reports a change of the tags applied to a thread.
type ThreadUpdate struct {
	ThreadID     string
	PreviousTags []string
	CurrentTags  []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
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
	return &TicketService{
		tickets:    deps.TicketRepo,
		crews:      deps.CrewRepo,
		teams:      deps.TeamRepo,
		members:    deps.MemberRepo,
		history:    deps.HistoryRepo,
		tags:       deps.Tags,
		gateway:    deps.Gateway,
		identities: deps.Members,
		locks:      locker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		cfg:        deps.Config,
		botID:      deps.BotIdentityID,
		now:        now,
	}
}

// Get returns a ticket, closed or not.
func (s *TicketService) Get(ctx context.Context, threadID string) (*domain.Ticket, error) {
	return s.loadTicket(ctx, threadID)
}

// Create opens a new thread on the crew's team forum and records the ticket in TRIAGE.
func (s *TicketService) Create(ctx context.Context, crewID string, draft TicketDraft) (Outcome[*domain.Ticket], error) {
	var out Outcome[*domain.Ticket]

	draft.Name = strings.TrimSpace(draft.Name)
	draft.Content = strings.TrimSpace(draft.Content)
	draft.CreatedBy = strings.TrimSpace(draft.CreatedBy)
	if draft.Name == "" || draft.Content == "" || draft.CreatedBy == "" {
		return out, apperrors.NewValidationError("Invalid ticket", map[string]any{
			"required": []string{"name", "content", "created_by"},
		})
	}
	if draft.UpdatedBy == "" {
		draft.UpdatedBy = draft.CreatedBy
	}

	crew, err := s.crews.GetByID(ctx, crewID, false)
	if err != nil {
		return out, crewLookupError(crewID, err)
	}
	team, err := s.teamFor(ctx, crew)
	if err != nil {
		return out, err
	}
	applied, err := s.initialTags(ctx, team.ID, crew.ShortName)
	if err != nil {
		return out, apperrors.NewInternalError(fmt.Errorf("resolve tags: %w", err))
	}

	w := newWarner(s.logger, s.metrics, zap.String("crew_id", crew.ID))

	embeds := []gateway.Embed{triagePrompt(draft.CreatedBy, crew.RoleID)}
	if draft.PreviousThreadID != nil {
		note, err := s.incomingNote(ctx, *draft.PreviousThreadID, crew.OrganizationID, w)
		if err != nil {
			return out, err
		}
		if note != nil {
			embeds = append(embeds, *note)
		}
	}

	message := gateway.MessagePayload{
		Content:      newTicketContent(draft.Content, draft.CreatedBy, crew.RoleID),
		Embeds:       embeds,
		MentionUsers: []string{draft.CreatedBy},
	}
	if !crew.HasMovePrompt {
		message.MentionRoles = []string{crew.RoleID}
	}

	threadID, err := s.gateway.CreateThreadWithMessage(ctx, team.ForumID, gateway.ThreadDraft{Name: draft.Name, Message: message}, applied)
	if err != nil {
		return out, apperrors.NewInternalError(fmt.Errorf("create thread: %w", err))
	}

	ticket := &domain.Ticket{
		ThreadID:         threadID,
		OrganizationID:   crew.OrganizationID,
		CrewID:           crew.ID,
		PreviousThreadID: draft.PreviousThreadID,
		Name:             draft.Name,
		Content:          draft.Content,
		Status:           domain.TicketStatusTriage,
		CreatedBy:        draft.CreatedBy,
		UpdatedBy:        draft.UpdatedBy,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.logger.Error("thread created but ticket not persisted", zap.String("ticket_id", threadID), zap.Error(err))
		return out, apperrors.NewInternalError(err)
	}
	out.Value = ticket

	if crew.HasMovePrompt {
		w.add("move_prompt", s.attachMovePrompt(ctx, team.ForumID, ticket.ThreadID, crew))
	}

	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketCreated,
		OrganizationID: ticket.OrganizationID,
		Subject:        ticket.ThreadID,
		ActorID:        draft.UpdatedBy,
		Payload: events.TicketCreatedPayload{
			CrewID:           ticket.CrewID,
			Name:             ticket.Name,
			PreviousThreadID: ticket.PreviousThreadID,
		},
	})

	out.Warnings = w.warnings()
	return out, nil
}

// Transition moves a ticket to target. The persisted status is authoritative;
// notices, controls, tags and direct messages are best effort and reported
// as warnings. A nil Value without error means the row vanished underneath.
func (s *TicketService) Transition(ctx context.Context, threadID string, target domain.TicketStatus, actorID, reason string) (Outcome[*domain.Ticket], error) {
	if !target.Valid() {
		return Outcome[*domain.Ticket]{}, apperrors.NewValidationError("Unknown ticket state", map[string]any{"status": target})
	}
	if strings.TrimSpace(actorID) == "" {
		return Outcome[*domain.Ticket]{}, apperrors.NewValidationError("Ticket updates must provide an actor", nil)
	}

	unlock, err := s.lockTicket(ctx, threadID)
	if err != nil {
		return Outcome[*domain.Ticket]{}, err
	}
	defer unlock()

	return s.transitionLocked(ctx, threadID, target, actorID, reason, "")
}

// movedTo is set when the transition marks the source of a move.
func (s *TicketService) transitionLocked(ctx context.Context, threadID string, target domain.TicketStatus, actorID, reason, movedTo string) (Outcome[*domain.Ticket], error) {
	var out Outcome[*domain.Ticket]

	ticket, err := s.loadTicket(ctx, threadID)
	if err != nil {
		return out, err
	}
	if movedTo == "" && s.cfg.LockTerminalStates && ticket.Status.IsTerminal() {
		return out, apperrors.NewValidationError(
			fmt.Sprintf("This ticket is already %s", strings.ToLower(string(ticket.Status))),
			map[string]any{"status": ticket.Status},
		)
	}

	crew, err := s.crews.GetByID(ctx, ticket.CrewID, true)
	if err != nil {
		return out, crewLookupError(ticket.CrewID, err)
	}
	team, err := s.teamFor(ctx, crew)
	if err != nil {
		return out, err
	}
	actor, err := s.resolveActor(ctx, actorID, crew.ID)
	if err != nil {
		return out, err
	}
	thread, err := s.gateway.FetchThread(ctx, team.ForumID, ticket.ThreadID)
	if err != nil {
		return out, apperrors.NewInternalError(fmt.Errorf("fetch thread: %w", err))
	}

	previous := ticket.Status
	updated, err := s.tickets.UpdateStatus(ctx, ticket.ThreadID, target, actor.ID, s.now())
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}
	if updated == nil {
		s.logger.Warn("transition matched no ticket", zap.String("ticket_id", ticket.ThreadID))
		return out, nil
	}
	out.Value = updated

	w := newWarner(s.logger, s.metrics, zap.String("ticket_id", ticket.ThreadID), zap.String("status", string(target)))
	props := transitions[target]

	if movedTo != "" {
		w.add("history", s.recordHistory(ctx, ticket.ThreadID, actor.ID, domain.ChangeTypeMove,
			map[string]any{"status": previous, "crew_id": ticket.CrewID},
			map[string]any{"status": target, "thread_id": movedTo}))
	} else {
		newValue := map[string]any{"status": target}
		if reason != "" {
			newValue["reason"] = reason
		}
		w.add("history", s.recordHistory(ctx, ticket.ThreadID, actor.ID, domain.ChangeTypeStatus,
			map[string]any{"status": previous}, newValue))
	}

	notice := transitionNotice(props, thread.ID, actor, reason)
	payload := gateway.MessagePayload{Embeds: []gateway.Embed{notice}, MentionUsers: []string{ticket.CreatedBy}}
	if ticket.CreatedBy != actor.ID {
		payload.Content = userMention(ticket.CreatedBy)
	}
	w.add("notice", s.gateway.SendMessage(ctx, thread.ID, payload))

	w.add("controls", s.gateway.EditMessage(ctx, thread.ID, thread.StarterMessageID,
		gateway.MessagePayload{Controls: controlsFor(target, thread.ID)}))

	w.add("tags", s.syncTags(ctx, team.ID, thread, props, target))

	if notifiesCreatorDirectly(target) && ticket.CreatedBy != actor.ID {
		w.add("direct_message", s.gateway.SendDirectMessage(ctx, ticket.CreatedBy,
			gateway.MessagePayload{Embeds: []gateway.Embed{notice}}))
	}

	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketTransitioned,
		OrganizationID: updated.OrganizationID,
		Subject:        updated.ThreadID,
		ActorID:        actor.ID,
		Payload: events.TicketTransitionedPayload{
			OldStatus: previous,
			NewStatus: target,
			Reason:    reason,
		},
	})

	out.Warnings = w.warnings()
	return out, nil
}

// Move copies a ticket into the destination crew, linking the copy back to
// the source, then marks the source MOVED. Both records are kept.
func (s *TicketService) Move(ctx context.Context, threadID, destinationCrewID, actorID string) (Outcome[*MoveResult], error) {
	var out Outcome[*MoveResult]

	if strings.TrimSpace(destinationCrewID) == "" {
		return out, apperrors.NewValidationError("Destination crew is required", nil)
	}
	if strings.TrimSpace(actorID) == "" {
		return out, apperrors.NewValidationError("Ticket updates must provide an actor", nil)
	}

	unlock, err := s.lockTicket(ctx, threadID)
	if err != nil {
		return out, err
	}
	defer unlock()

	source, err := s.loadTicket(ctx, threadID)
	if err != nil {
		return out, err
	}
	if source.CrewID == destinationCrewID {
		return out, apperrors.NewValidationError("Ticket already belongs to that crew", nil)
	}
	if !s.cfg.AllowMoveFromTerminal && source.Status.IsTerminal() {
		return out, apperrors.NewValidationError(
			fmt.Sprintf("A %s ticket cannot be moved", strings.ToLower(string(source.Status))), nil)
	}
	if _, err := s.resolveActor(ctx, actorID, source.CrewID); err != nil {
		return out, err
	}

	previous := source.ThreadID
	created, err := s.Create(ctx, destinationCrewID, TicketDraft{
		Name:             source.Name,
		Content:          source.Content,
		CreatedBy:        source.CreatedBy,
		UpdatedBy:        actorID,
		PreviousThreadID: &previous,
	})
	if err != nil {
		return out, err
	}

	w := newWarner(s.logger, s.metrics, zap.String("ticket_id", source.ThreadID))
	w.merge(created.Warnings)

	moved, err := s.transitionLocked(ctx, source.ThreadID, domain.TicketStatusMoved, actorID, "", created.Value.ThreadID)
	if err != nil {
		s.logger.Error("ticket copied but source not marked moved",
			zap.String("ticket_id", source.ThreadID),
			zap.String("new_ticket_id", created.Value.ThreadID),
			zap.Error(err))
		return out, err
	}
	w.merge(moved.Warnings)

	sourceAfter := moved.Value
	if sourceAfter == nil {
		sourceAfter = source
	}
	out.Value = &MoveResult{Source: sourceAfter, Ticket: created.Value}

	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketMoved,
		OrganizationID: source.OrganizationID,
		Subject:        source.ThreadID,
		ActorID:        actorID,
		Payload: events.TicketMovedPayload{
			FromCrewID:    source.CrewID,
			ToCrewID:      created.Value.CrewID,
			NewThreadID:   created.Value.ThreadID,
			CrossOrgMoved: created.Value.OrganizationID != source.OrganizationID,
		},
	})

	out.Warnings = w.warnings()
	return out, nil
}

// Close announces the closure, archives and locks the thread, then soft
// deletes the ticket. Closing a closed ticket returns it unchanged.
func (s *TicketService) Close(ctx context.Context, threadID, actorID string) (Outcome[*domain.Ticket], error) {
	var out Outcome[*domain.Ticket]

	if strings.TrimSpace(actorID) == "" {
		return out, apperrors.NewValidationError("Ticket updates must provide an actor", nil)
	}

	unlock, err := s.lockTicket(ctx, threadID)
	if err != nil {
		return out, err
	}
	defer unlock()

	ticket, err := s.loadTicket(ctx, threadID)
	if err != nil {
		return out, err
	}
	if ticket.Closed() {
		out.Value = ticket
		return out, nil
	}

	actor, err := s.resolveActor(ctx, actorID, ticket.CrewID)
	if err != nil {
		return out, err
	}

	w := newWarner(s.logger, s.metrics, zap.String("ticket_id", ticket.ThreadID))
	w.add("notice", s.gateway.SendMessage(ctx, ticket.ThreadID,
		gateway.MessagePayload{Embeds: []gateway.Embed{closureNotice(actor)}}))
	w.add("archive", s.gateway.ArchiveAndLock(ctx, ticket.ThreadID))

	closed, err := s.tickets.SoftDelete(ctx, ticket.ThreadID, actor.ID, s.now())
	if err != nil {
		return out, apperrors.NewInternalError(err)
	}
	if closed == nil {
		if closed, err = s.loadTicket(ctx, ticket.ThreadID); err != nil {
			return out, err
		}
		out.Value = closed
		out.Warnings = w.warnings()
		return out, nil
	}
	out.Value = closed

	w.add("history", s.recordHistory(ctx, closed.ThreadID, actor.ID, domain.ChangeTypeClosed,
		map[string]any{"status": ticket.Status}, map[string]any{"status": closed.Status, "closed": true}))

	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketClosed,
		OrganizationID: closed.OrganizationID,
		Subject:        closed.ThreadID,
		ActorID:        actor.ID,
		Payload:        events.TicketClosedPayload{Status: closed.Status},
	})

	out.Warnings = w.warnings()
	return out, nil
}

// Chain returns the ticket followed by each of its predecessors.
func (s *TicketService) Chain(ctx context.Context, threadID string) ([]domain.Ticket, error) {
	seen := make(map[string]struct{})
	var chain []domain.Ticket

	next := threadID
	for {
		if _, ok := seen[next]; ok {
			return nil, apperrors.NewInternalError(fmt.Errorf("ticket chain of %s loops at %s", threadID, next))
		}
		seen[next] = struct{}{}

		ticket, err := s.loadTicket(ctx, next)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *ticket)
		if ticket.PreviousThreadID == nil {
			return chain, nil
		}
		next = *ticket.PreviousThreadID
	}
}

// History lists the audit entries of a ticket.
func (s *TicketService) History(ctx context.Context, threadID string) ([]domain.TicketHistory, error) {
	if _, err := s.loadTicket(ctx, threadID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, threadID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// AttachControls installs the initial controls on a freshly created thread.
// It reports false when the thread carries no ticket or needs no controls.
func (s *TicketService) AttachControls(ctx context.Context, threadID string) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, threadID, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperrors.NewInternalError(err)
	}

	crew, err := s.crews.GetByID(ctx, ticket.CrewID, true)
	if err != nil {
		return false, crewLookupError(ticket.CrewID, err)
	}
	team, err := s.teamFor(ctx, crew)
	if err != nil {
		return false, err
	}

	if crew.HasMovePrompt {
		if err := s.attachMovePrompt(ctx, team.ForumID, ticket.ThreadID, crew); err != nil {
			return false, apperrors.NewInternalError(err)
		}
		return true, nil
	}

	thread, err := s.gateway.FetchThread(ctx, team.ForumID, ticket.ThreadID)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	triageID, ok, err := s.tags.ResolveLifecycleTag(ctx, team.ID, domain.TicketStatusTriage)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}
	if !ok || !contains(thread.AppliedTags, triageID) {
		return false, nil
	}

	controls := []gateway.ControlRow{triageControls(thread.ID, triageDisabled{})}
	if err := s.gateway.EditMessage(ctx, thread.ID, thread.StarterMessageID, gateway.MessagePayload{Controls: controls}); err != nil {
		return false, apperrors.NewInternalError(err)
	}
	return true, nil
}

// HandleThreadUpdated closes the ticket when a closing lifecycle tag
// appears on its thread that was not applied before.
func (s *TicketService) HandleThreadUpdated(ctx context.Context, update ThreadUpdate) (bool, error) {
	ticket, err := s.tickets.GetByID(ctx, update.ThreadID, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("no open ticket for thread update", zap.String("thread_id", update.ThreadID))
			return false, nil
		}
		return false, apperrors.NewInternalError(err)
	}

	crew, err := s.crews.GetByID(ctx, ticket.CrewID, true)
	if err != nil {
		return false, crewLookupError(ticket.CrewID, err)
	}
	tagMap, err := s.tags.TagMap(ctx, crew.TeamID)
	if err != nil {
		return false, apperrors.NewInternalError(err)
	}

	if !hasClosingTag(tagMap, update.CurrentTags) || hasClosingTag(tagMap, update.PreviousTags) {
		return false, nil
	}
	if s.botID == "" {
		return false, apperrors.NewInternalError(errors.New("bot identity not configured"))
	}

	s.logger.Info("closing ticket after tag change", zap.String("ticket_id", ticket.ThreadID))
	if _, err := s.Close(ctx, ticket.ThreadID, s.botID); err != nil {
		return false, err
	}
	return true, nil
}

func hasClosingTag(tagMap tags.Map, applied []string) bool {
	for _, id := range applied {
		if status, ok := tagMap.StatusOf(id); ok && status.IsTerminal() {
			return true
		}
	}
	return false
}

func (s *TicketService) lockTicket(ctx context.Context, threadID string) (func(), error) {
	unlock, err := s.locks.Lock(ctx, "ticket:"+threadID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("lock ticket %s: %w", threadID, err))
	}
	return unlock, nil
}

func (s *TicketService) loadTicket(ctx context.Context, threadID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, threadID, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundMessage("This action can only be performed inside a ticket thread.",
				map[string]any{"thread_id": threadID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

func (s *TicketService) teamFor(ctx context.Context, crew *domain.Crew) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, crew.TeamID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("team %s of crew %s: %w", crew.TeamID, crew.ID, err))
	}
	if team.ForumID == "" {
		return nil, apperrors.NewInternalError(fmt.Errorf("team %s has no forum", team.ID))
	}
	return team, nil
}

// resolveActor falls back to a bare identity for the service's own bot
// account, which need not be resolvable as an organization member.
func (s *TicketService) resolveActor(ctx context.Context, actorID, crewID string) (*gateway.Identity, error) {
	resolved := s.identities.ResolveIdentity(ctx, actorID, crewID)
	if resolved.Success {
		return resolved.Identity, nil
	}
	if s.botID != "" && actorID == s.botID {
		return &gateway.Identity{ID: actorID, DisplayName: "the ticket bot"}, nil
	}
	if resolved.NotMember {
		return nil, apperrors.NewNotFoundMessage(resolved.Message, map[string]any{"identity_id": actorID})
	}
	return nil, apperrors.NewInternalError(errors.New(resolved.Message))
}

func (s *TicketService) initialTags(ctx context.Context, teamID, shortName string) ([]string, error) {
	var applied []string

	triage, ok, err := s.tags.ResolveLifecycleTag(ctx, teamID, domain.TicketStatusTriage)
	if err != nil {
		return nil, err
	}
	if ok {
		applied = append(applied, triage)
	}

	crewTag, ok, err := s.tags.ResolveCrewTag(ctx, teamID, shortName)
	if err != nil {
		return nil, err
	}
	if ok {
		applied = append(applied, crewTag)
	}

	defaults, err := s.tags.DefaultTags(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return uniqueStrings(append(applied, defaults...)), nil
}

func (s *TicketService) incomingNote(ctx context.Context, previousThreadID, organizationID string, w *warner) (*gateway.Embed, error) {
	previous, err := s.tickets.GetByID(ctx, previousThreadID, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("previous ticket", map[string]any{"thread_id": previousThreadID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if previous.OrganizationID == organizationID {
		return nil, nil
	}
	org, err := s.gateway.FetchOrganization(ctx, previous.OrganizationID)
	if err != nil {
		w.add("incoming_note", err)
		return nil, nil
	}
	note := incomingRequest(org)
	return &note, nil
}

func (s *TicketService) attachMovePrompt(ctx context.Context, forumID, threadID string, crew *domain.Crew) error {
	crews, err := s.crews.ListByOrganization(ctx, crew.OrganizationID)
	if err != nil {
		return err
	}
	thread, err := s.gateway.FetchThread(ctx, forumID, threadID)
	if err != nil {
		return err
	}
	controls := []gateway.ControlRow{
		movePrompt(thread.ID, crews, crew.ID),
		triageControls(thread.ID, triageDisabled{accept: true}),
	}
	return s.gateway.EditMessage(ctx, thread.ID, thread.StarterMessageID, gateway.MessagePayload{Controls: controls})
}

func (s *TicketService) syncTags(ctx context.Context, teamID string, thread *gateway.Thread, props transitionProps, target domain.TicketStatus) error {
	tagMap, err := s.tags.TagMap(ctx, teamID)
	if err != nil {
		return err
	}
	added, _ := tagMap.Lifecycle(target)
	removed := tagMap.LifecycleIDs(props.TagsRemoved)
	return s.gateway.SetThreadTags(ctx, thread.ID, nextTags(thread.AppliedTags, removed, added))
}

func (s *TicketService) recordHistory(ctx context.Context, ticketID, actorID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  actorID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	return s.history.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	s.metrics.RecordOperation(string(event.Type))
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func contains(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}
