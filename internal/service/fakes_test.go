package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crew-ticket-service/internal/config"
	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/events"
	"github.com/spec-kit/crew-ticket-service/internal/lock"
	"github.com/spec-kit/crew-ticket-service/internal/observability"
	"github.com/spec-kit/crew-ticket-service/internal/servicetest"
	"github.com/spec-kit/crew-ticket-service/internal/tags"
)

type harness struct {
	store    *servicetest.Store
	gw       *servicetest.Gateway
	metrics  *observability.Metrics
	mu       sync.Mutex
	events   []events.Event
	tickets  *TicketService
	members  *CrewMemberService
	registry *CrewService
}

func lifecycleTag(status domain.TicketStatus) string {
	return servicetest.LifecycleTag("tag-", status)
}

func newHarness(t *testing.T, cfg config.TicketConfig) *harness {
	t.Helper()

	store := servicetest.NewStore()
	gw := servicetest.NewGateway()
	servicetest.Seed(store, gw)

	h := &harness{store: store, gw: gw, metrics: observability.NewMetrics()}

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventTicketCreated, events.EventTicketTransitioned, events.EventTicketMoved, events.EventTicketClosed,
		events.EventMemberRegistered, events.EventMemberUpdated, events.EventMemberRemoved,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, e)
			return nil
		})
	}

	resolver := tags.NewResolver(store.TeamRepo(), nil, 0, nil)
	locker := lock.NewLocalLocker()
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	h.members = NewCrewMemberService(CrewMemberDependencies{
		CrewRepo:   store.CrewRepo(),
		MemberRepo: store.MemberRepo(),
		Gateway:    gw,
		Locker:     locker,
		Dispatcher: dispatcher,
		Metrics:    h.metrics,
		Now:        now,
	})
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:    store.TicketRepo(),
		CrewRepo:      store.CrewRepo(),
		TeamRepo:      store.TeamRepo(),
		MemberRepo:    store.MemberRepo(),
		HistoryRepo:   store.HistoryRepo(),
		Tags:          resolver,
		Gateway:       gw,
		Members:       h.members,
		Locker:        locker,
		Dispatcher:    dispatcher,
		Metrics:       h.metrics,
		Config:        cfg,
		BotIdentityID: "BOT",
		Now:           now,
	})
	h.registry = NewCrewService(CrewDependencies{
		TeamRepo: store.TeamRepo(),
		CrewRepo: store.CrewRepo(),
		Tags:     resolver,
		Members:  h.members,
		Metrics:  h.metrics,
		Now:      now,
	})
	return h
}

func defaultTicketConfig() config.TicketConfig {
	return config.TicketConfig{AllowMoveFromTerminal: true}
}

func (h *harness) createTicket(t *testing.T, crewID string) *domain.Ticket {
	t.Helper()
	out, err := h.tickets.Create(context.Background(), crewID, TicketDraft{
		Name:      "Resupply",
		Content:   "Need fuel",
		CreatedBy: "U1",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Value)
	return out.Value
}

func (h *harness) eventsOf(eventType events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.Event
	for _, e := range h.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) member(crewID, identityID string) (domain.CrewMember, bool) {
	return h.store.Member(crewID, identityID)
}

func (h *harness) putMember(m domain.CrewMember) {
	h.store.Mu.Lock()
	defer h.store.Mu.Unlock()
	h.store.Members[servicetest.MemberKey{Crew: m.CrewID, Identity: m.IdentityID}] = m
}

func (h *harness) updateCrew(crewID string, mutate func(*domain.Crew)) {
	h.store.Mu.Lock()
	defer h.store.Mu.Unlock()
	crew := h.store.Crews[crewID]
	mutate(&crew)
	h.store.Crews[crewID] = crew
}
