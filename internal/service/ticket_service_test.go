package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crew-ticket-service/internal/config"
	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/events"
	"github.com/spec-kit/crew-ticket-service/internal/servicetest"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

func warningSteps(list []Warning) []string {
	steps := make([]string, 0, len(list))
	for _, w := range list {
		steps = append(steps, w.Step)
	}
	return steps
}

func allLifecycleTags() []string {
	applied := []string{"tag-log"}
	for _, status := range domain.TicketStatuses {
		applied = append(applied, lifecycleTag(status))
	}
	return applied
}

func TestCreateAppliesTriageCrewAndDefaultTags(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())

	ticket := h.createTicket(t, "crew-log")

	assert.Equal(t, domain.TicketStatusTriage, ticket.Status)
	assert.Equal(t, "O1", ticket.OrganizationID)
	assert.Equal(t, "U1", ticket.UpdatedBy)
	assert.Nil(t, ticket.PreviousThreadID)
	assert.False(t, ticket.Closed())

	require.Len(t, h.gw.Created, 1)
	created := h.gw.Created[0]
	assert.Equal(t, "F1", created.Forum)
	assert.Equal(t, []string{"tag-triage", "tag-log", "tag-logistics"}, created.Tags)
	assert.Equal(t, "Resupply", created.Draft.Name)
	assert.Contains(t, created.Draft.Message.Content, "Need fuel")
	assert.Equal(t, []string{"R-LOG"}, created.Draft.Message.MentionRoles)
	assert.Equal(t, []string{"U1"}, created.Draft.Message.MentionUsers)
	require.Len(t, created.Draft.Message.Embeds, 1)

	stored, err := h.tickets.Get(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ThreadID, stored.ThreadID)
	assert.Len(t, h.eventsOf(events.EventTicketCreated), 1)
}

func TestCreateRejectsIncompleteDraft(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())

	_, err := h.tickets.Create(context.Background(), "crew-log", TicketDraft{Name: "Resupply", CreatedBy: "U1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Empty(t, h.gw.Created)
}

func TestCreateUnknownCrew(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())

	_, err := h.tickets.Create(context.Background(), "crew-none", TicketDraft{Name: "a", Content: "b", CreatedBy: "U1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestTransitionDeclinedByAnotherIdentity(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")
	h.gw.SetAppliedTags(ticket.ThreadID, allLifecycleTags())

	out, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusDeclined, "U3", "duplicate")
	require.NoError(t, err)
	require.NotNil(t, out.Value)
	assert.True(t, out.OK(), "unexpected warnings: %v", out.Warnings)

	assert.Equal(t, domain.TicketStatusDeclined, out.Value.Status)
	assert.Equal(t, "U3", out.Value.UpdatedBy)

	applied := h.gw.Thread(ticket.ThreadID).AppliedTags
	assert.Contains(t, applied, "tag-declined")
	assert.Contains(t, applied, "tag-log")
	for _, removed := range transitions[domain.TicketStatusDeclined].TagsRemoved {
		assert.NotContains(t, applied, lifecycleTag(removed))
	}

	notices := h.gw.SentTo(ticket.ThreadID)
	require.Len(t, notices, 1)
	assert.Equal(t, "<@U1>", notices[0].Payload.Content)
	require.Len(t, notices[0].Payload.Embeds, 1)
	assert.Equal(t, "Ticket Declined", notices[0].Payload.Embeds[0].Title)
	assert.Contains(t, notices[0].Payload.Embeds[0].Description, "> duplicate")

	require.Len(t, h.gw.DMs, 1)
	assert.Equal(t, "U1", h.gw.DMs[0].Target)

	require.NotEmpty(t, h.gw.Edits)
	last := h.gw.Edits[len(h.gw.Edits)-1]
	assert.Equal(t, ticket.ThreadID+"/m-"+ticket.ThreadID, last.Target)
	assert.NotNil(t, last.Payload.Controls)
	assert.Empty(t, last.Payload.Controls)

	history, err := h.tickets.History(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeStatus, history[0].ChangeType)
	assert.Equal(t, "U3", history[0].ChangedBy)
	assert.Equal(t, "duplicate", history[0].NewValue["reason"])

	transitioned := h.eventsOf(events.EventTicketTransitioned)
	require.Len(t, transitioned, 1)
	payload := transitioned[0].Payload.(events.TicketTransitionedPayload)
	assert.Equal(t, domain.TicketStatusTriage, payload.OldStatus)
	assert.Equal(t, domain.TicketStatusDeclined, payload.NewStatus)
}

func TestTransitionTagsFollowRemovalSets(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())

	for _, target := range domain.TicketStatuses {
		ticket := h.createTicket(t, "crew-log")
		h.gw.SetAppliedTags(ticket.ThreadID, allLifecycleTags())

		out, err := h.tickets.Transition(context.Background(), ticket.ThreadID, target, "U2", "")
		require.NoError(t, err, target)
		require.NotNil(t, out.Value, target)
		assert.Equal(t, target, out.Value.Status)

		applied := h.gw.Thread(ticket.ThreadID).AppliedTags
		assert.Contains(t, applied, lifecycleTag(target), target)
		for _, removed := range transitions[target].TagsRemoved {
			assert.NotContains(t, applied, lifecycleTag(removed), target)
		}
	}
}

func TestTransitionByCreatorSkipsDirectMessage(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	_, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusAccepted, "U1", "")
	require.NoError(t, err)

	assert.Empty(t, h.gw.DMs)
	notices := h.gw.SentTo(ticket.ThreadID)
	require.Len(t, notices, 1)
	assert.Empty(t, notices[0].Payload.Content)
}

func TestTransitionTagFailureIsWarning(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")
	h.gw.TagErr = errors.New("label api down")

	out, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusAccepted, "U2", "")
	require.NoError(t, err)
	require.NotNil(t, out.Value)
	assert.Equal(t, []string{"tags"}, warningSteps(out.Warnings))

	stored, err := h.tickets.Get(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAccepted, stored.Status)
	assert.Equal(t, int64(1), h.metrics.Snapshot().Warnings["tags"])
}

func TestTransitionDirectMessageAndHistoryFailuresAreWarnings(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")
	h.gw.DMErr = errors.New("dms closed")
	h.store.HistoryErr = errors.New("history table locked")

	out, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusDone, "U2", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"history", "direct_message"}, warningSteps(out.Warnings))
	assert.Equal(t, domain.TicketStatusDone, out.Value.Status)
}

type vanishingTickets struct{ servicetest.TicketRepo }

func (vanishingTickets) UpdateStatus(context.Context, string, domain.TicketStatus, string, time.Time) (*domain.Ticket, error) {
	return nil, nil
}

func TestTransitionOnVanishedRowReturnsNil(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")
	h.tickets.tickets = vanishingTickets{servicetest.TicketRepo{Store: h.store}}

	out, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusAccepted, "U2", "")
	require.NoError(t, err)
	assert.Nil(t, out.Value)
	assert.Empty(t, h.gw.SentTo(ticket.ThreadID))
	assert.Empty(t, h.eventsOf(events.EventTicketTransitioned))
}

func TestTransitionRejectsUnknownActor(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	_, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusAccepted, "U9", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	stored, err := h.tickets.Get(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusTriage, stored.Status)
	assert.Empty(t, h.gw.SentTo(ticket.ThreadID))
}

func TestTransitionValidatesInput(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	_, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatus("LOST"), "U2", "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusDone, " ", "")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = h.tickets.Transition(context.Background(), "T404", domain.TicketStatusDone, "U2", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Equal(t, "This action can only be performed inside a ticket thread.", apperrors.ToDomainError(err).Message)
}

func TestLockTerminalStates(t *testing.T) {
	cfg := defaultTicketConfig()
	cfg.LockTerminalStates = true
	h := newHarness(t, cfg)
	ticket := h.createTicket(t, "crew-log")

	_, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusDone, "U2", "")
	require.NoError(t, err)

	_, err = h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusAccepted, "U2", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	moved, err := h.tickets.Move(context.Background(), ticket.ThreadID, "crew-med", "U2")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusMoved, moved.Value.Source.Status)
}

func TestTerminalTicketsMayReopenByDefault(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	_, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusDeclined, "U2", "")
	require.NoError(t, err)
	out, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusTriage, "U2", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusTriage, out.Value.Status)
	assert.Equal(t, []string{"tag-log", "tag-logistics", "tag-triage"}, h.gw.Thread(ticket.ThreadID).AppliedTags)
}

func TestMoveChainsTicketsWithoutCycles(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	first := h.createTicket(t, "crew-log")

	hops := []string{"crew-med", "crew-log", "crew-med"}
	current := first.ThreadID
	visited := []string{current}
	for _, dest := range hops {
		out, err := h.tickets.Move(context.Background(), current, dest, "U2")
		require.NoError(t, err)
		require.NotNil(t, out.Value)

		assert.Equal(t, domain.TicketStatusMoved, out.Value.Source.Status)
		require.NotNil(t, out.Value.Ticket.PreviousThreadID)
		assert.Equal(t, current, *out.Value.Ticket.PreviousThreadID)
		assert.Equal(t, dest, out.Value.Ticket.CrewID)
		assert.Equal(t, domain.TicketStatusTriage, out.Value.Ticket.Status)
		assert.Equal(t, "U1", out.Value.Ticket.CreatedBy)
		assert.Equal(t, "U2", out.Value.Ticket.UpdatedBy)

		current = out.Value.Ticket.ThreadID
		visited = append([]string{current}, visited...)
	}

	chain, err := h.tickets.Chain(context.Background(), current)
	require.NoError(t, err)
	require.Len(t, chain, len(hops)+1)
	for i, ticket := range chain {
		assert.Equal(t, visited[i], ticket.ThreadID)
	}
	assert.Nil(t, chain[len(chain)-1].PreviousThreadID)

	history, err := h.tickets.History(context.Background(), first.ThreadID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeMove, history[0].ChangeType)
	assert.Len(t, h.eventsOf(events.EventTicketMoved), len(hops))
}

func TestMoveAcrossOrganizationsAddsIncomingNote(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	out, err := h.tickets.Move(context.Background(), ticket.ThreadID, "crew-far", "U2")
	require.NoError(t, err)
	assert.Equal(t, "O2", out.Value.Ticket.OrganizationID)

	require.Len(t, h.gw.Created, 2)
	created := h.gw.Created[1]
	assert.Equal(t, "F2", created.Forum)
	assert.Equal(t, []string{"o2-triage"}, created.Tags)
	require.Len(t, created.Draft.Message.Embeds, 2)
	assert.Equal(t, "Incoming Request from Vanguard", created.Draft.Message.Embeds[1].Title)

	moved := h.eventsOf(events.EventTicketMoved)
	require.Len(t, moved, 1)
	assert.True(t, moved[0].Payload.(events.TicketMovedPayload).CrossOrgMoved)
}

func TestMoveRejectsSameCrewAndUnknownDestination(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	_, err := h.tickets.Move(context.Background(), ticket.ThreadID, "crew-log", "U2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = h.tickets.Move(context.Background(), ticket.ThreadID, "crew-none", "U2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	stored, err := h.tickets.Get(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusTriage, stored.Status)
	assert.Len(t, h.gw.Created, 1)
}

func TestMoveFromTerminalCanBeDisallowed(t *testing.T) {
	cfg := defaultTicketConfig()
	cfg.AllowMoveFromTerminal = false
	h := newHarness(t, cfg)
	ticket := h.createTicket(t, "crew-log")

	_, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusDone, "U2", "")
	require.NoError(t, err)

	_, err = h.tickets.Move(context.Background(), ticket.ThreadID, "crew-med", "U2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Len(t, h.gw.Created, 1)
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	first, err := h.tickets.Close(context.Background(), ticket.ThreadID, "U2")
	require.NoError(t, err)
	require.NotNil(t, first.Value)
	assert.True(t, first.Value.Closed())
	assert.Equal(t, "U2", first.Value.UpdatedBy)

	thread := h.gw.Thread(ticket.ThreadID)
	assert.True(t, thread.Archived)
	assert.True(t, thread.Locked)

	second, err := h.tickets.Close(context.Background(), ticket.ThreadID, "U3")
	require.NoError(t, err)
	require.NotNil(t, second.Value)
	assert.True(t, second.Value.Closed())
	assert.Equal(t, "U2", second.Value.UpdatedBy)

	assert.Len(t, h.gw.SentTo(ticket.ThreadID), 1)
	assert.Len(t, h.eventsOf(events.EventTicketClosed), 1)

	stored, err := h.tickets.Get(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	assert.True(t, stored.Closed())
}

func TestCloseArchiveFailureIsWarning(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")
	h.gw.ArchiveErr = errors.New("already archived")

	out, err := h.tickets.Close(context.Background(), ticket.ThreadID, "U2")
	require.NoError(t, err)
	assert.True(t, out.Value.Closed())
	assert.Equal(t, []string{"archive"}, warningSteps(out.Warnings))
}

func TestAttachControls(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	attached, err := h.tickets.AttachControls(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	assert.True(t, attached)
	last := h.gw.Edits[len(h.gw.Edits)-1]
	require.Len(t, last.Payload.Controls, 1)
	assert.Len(t, last.Payload.Controls[0].Controls, 3)

	attached, err = h.tickets.AttachControls(context.Background(), "T404")
	require.NoError(t, err)
	assert.False(t, attached)
}

func TestCreateWithMovePromptListsOtherCrews(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	h.updateCrew("crew-med", func(c *domain.Crew) { c.HasMovePrompt = true })

	out, err := h.tickets.Create(context.Background(), "crew-med", TicketDraft{Name: "Triage me", Content: "Where?", CreatedBy: "U1"})
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Empty(t, h.gw.Created[0].Draft.Message.MentionRoles)

	require.NotEmpty(t, h.gw.Edits)
	rows := h.gw.Edits[len(h.gw.Edits)-1].Payload.Controls
	require.Len(t, rows, 2)
	var options []string
	for _, option := range rows[0].Controls[0].Options {
		options = append(options, option.Value)
	}
	assert.Equal(t, []string{"crew-log", "crew-sec"}, options)
	assert.True(t, rows[1].Controls[1].Disabled)
}

func TestHandleThreadUpdatedClosesOnNewClosingTag(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	closed, err := h.tickets.HandleThreadUpdated(context.Background(), ThreadUpdate{
		ThreadID:     ticket.ThreadID,
		PreviousTags: []string{"tag-triage"},
		CurrentTags:  []string{"tag-triage", "tag-done"},
	})
	require.NoError(t, err)
	assert.True(t, closed)

	stored, err := h.tickets.Get(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	assert.True(t, stored.Closed())
	assert.Equal(t, "BOT", stored.UpdatedBy)

	closed, err = h.tickets.HandleThreadUpdated(context.Background(), ThreadUpdate{
		ThreadID:     ticket.ThreadID,
		PreviousTags: []string{"tag-done"},
		CurrentTags:  []string{"tag-done"},
	})
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestHandleThreadUpdatedIgnoresUnrelatedChanges(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	closed, err := h.tickets.HandleThreadUpdated(context.Background(), ThreadUpdate{
		ThreadID:     ticket.ThreadID,
		PreviousTags: []string{"tag-triage"},
		CurrentTags:  []string{"tag-accepted"},
	})
	require.NoError(t, err)
	assert.False(t, closed)

	closed, err = h.tickets.HandleThreadUpdated(context.Background(), ThreadUpdate{ThreadID: "T404", CurrentTags: []string{"tag-done"}})
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestConcurrentTransitionsAreSerialized(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	ticket := h.createTicket(t, "crew-log")

	targets := []domain.TicketStatus{domain.TicketStatusAccepted, domain.TicketStatusInProgress, domain.TicketStatusDone}
	errs := make(chan error, len(targets))
	for _, target := range targets {
		go func(target domain.TicketStatus) {
			_, err := h.tickets.Transition(context.Background(), ticket.ThreadID, target, "U2", "")
			errs <- err
		}(target)
	}
	for range targets {
		require.NoError(t, <-errs)
	}

	history, err := h.tickets.History(context.Background(), ticket.ThreadID)
	require.NoError(t, err)
	require.Len(t, history, len(targets))
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].NewValue["status"], history[i].OldValue["status"])
	}
}

func TestCrewStatusAuthorization(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	h.createTicket(t, "crew-log")
	h.putMember(domain.CrewMember{CrewID: "crew-log", IdentityID: "U1", OrganizationID: "O1", Access: domain.AccessOwner})

	out, err := h.tickets.CrewStatus(context.Background(), "crew-log", "chan-open", "U2")
	require.NoError(t, err)
	assert.Len(t, out.Value.Tickets, 1)
	require.NotNil(t, out.Value.Owner)
	assert.Equal(t, "U1", out.Value.Owner.IdentityID)
	assert.Equal(t, 1, out.Value.MemberCount)
	assert.Len(t, h.gw.SentTo("chan-open"), 1)

	h.gw.Hide("crew-log", "U3")
	_, err = h.tickets.CrewStatus(context.Background(), "crew-log", "chan-open", "U3")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = h.tickets.CrewStatus(context.Background(), "crew-sec", "chan-open", "U2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	assert.Equal(t, "This channel is not secure", apperrors.ToDomainError(err).Message)

	_, err = h.tickets.CrewStatus(context.Background(), "crew-sec", "chan-private", "U2")
	require.NoError(t, err)

	_, err = h.tickets.CrewStatus(context.Background(), "crew-log", "chan-voice", "U2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	_, err = h.tickets.CrewStatus(context.Background(), "crew-log", "chan-missing", "U2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestCrewStatusRequiresOrganizationMembership(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())

	_, err := h.tickets.CrewStatus(context.Background(), "crew-log", "chan-open", "U9")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	out, err := h.tickets.OrganizationStatus(context.Background(), "O2", "chan-open", "U1")
	require.NoError(t, err)
	assert.Empty(t, out.Value.Crews)

	out, err = h.tickets.OrganizationStatus(context.Background(), "O2", "chan-open", "U3")
	require.NoError(t, err)
	require.Len(t, out.Value.Crews, 1)
	assert.Equal(t, "crew-far", out.Value.Crews[0].Crew.ID)
}

func TestOrganizationStatusFiltersCrews(t *testing.T) {
	h := newHarness(t, defaultTicketConfig())
	h.gw.Hide("crew-med", "U2")

	out, err := h.tickets.OrganizationStatus(context.Background(), "O1", "chan-open", "U2")
	require.NoError(t, err)
	require.Len(t, out.Value.Crews, 1)
	assert.Equal(t, "crew-log", out.Value.Crews[0].Crew.ID)

	out, err = h.tickets.OrganizationStatus(context.Background(), "O1", "chan-private", "U2")
	require.NoError(t, err)
	require.Len(t, out.Value.Crews, 2)
	assert.Equal(t, "crew-log", out.Value.Crews[0].Crew.ID)
	assert.Equal(t, "crew-sec", out.Value.Crews[1].Crew.ID)
}

func TestActorFallsBackToBotIdentity(t *testing.T) {
	h := newHarness(t, config.TicketConfig{AllowMoveFromTerminal: true})
	ticket := h.createTicket(t, "crew-log")

	out, err := h.tickets.Transition(context.Background(), ticket.ThreadID, domain.TicketStatusAbandoned, "BOT", "")
	require.NoError(t, err)
	assert.Equal(t, "BOT", out.Value.UpdatedBy)
}
