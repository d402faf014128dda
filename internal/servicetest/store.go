// Package servicetest provides in-memory implementations of the repository
// and gateway contracts for tests.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/repository"
)

// MemberKey addresses one membership row.
type MemberKey struct{ Crew, Identity string }

// Store holds every table. Missing rows are reported as pgx.ErrNoRows, like
// the pgx repositories do.
type Store struct {
	Mu      sync.Mutex
	Tickets map[string]domain.Ticket
	Crews   map[string]domain.Crew
	Teams   map[string]domain.Team
	Tags    map[string][]domain.TeamTag
	Members map[MemberKey]domain.CrewMember
	History []domain.TicketHistory

	HistoryErr error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		Tickets: map[string]domain.Ticket{},
		Crews:   map[string]domain.Crew{},
		Teams:   map[string]domain.Team{},
		Tags:    map[string][]domain.TeamTag{},
		Members: map[MemberKey]domain.CrewMember{},
	}
}

// LifecycleTag is the external id Seed gives a lifecycle tag.
func LifecycleTag(prefix string, status domain.TicketStatus) string {
	return prefix + strings.ToLower(string(status))
}

// SeedTeam registers a team with one lifecycle tag per status.
func (s *Store) SeedTeam(teamID, orgID, forumID, tagPrefix string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Teams[teamID] = domain.Team{ID: teamID, OrganizationID: orgID, Name: teamID, ForumID: forumID}
	for _, status := range domain.TicketStatuses {
		s.Tags[teamID] = append(s.Tags[teamID], domain.TeamTag{
			TeamID:     teamID,
			Name:       string(status),
			ExternalID: LifecycleTag(tagPrefix, status),
			Kind:       domain.TagKindLifecycle,
		})
	}
}

// Member returns a membership row.
func (s *Store) Member(crewID, identityID string) (domain.CrewMember, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	m, ok := s.Members[MemberKey{crewID, identityID}]
	return m, ok
}

func (s *Store) TicketRepo() repository.TicketRepository { return TicketRepo{s} }
func (s *Store) CrewRepo() repository.CrewRepository { return CrewRepo{s} }
func (s *Store) TeamRepo() repository.TeamRepository { return TeamRepo{s} }
func (s *Store) MemberRepo() repository.CrewMemberRepository { return MemberRepo{s} }
func (s *Store) HistoryRepo() repository.TicketHistoryRepository { return HistoryRepo{s} }

type TicketRepo struct{ Store *Store }

func (f TicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	if _, ok := f.Store.Tickets[t.ThreadID]; ok {
		return fmt.Errorf("duplicate ticket %s", t.ThreadID)
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.Store.Tickets[t.ThreadID] = *t
	return nil
}

func (f TicketRepo) GetByID(_ context.Context, id string, includeDeleted bool) (*domain.Ticket, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	t, ok := f.Store.Tickets[id]
	if !ok || (!includeDeleted && t.DeletedAt != nil) {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (f TicketRepo) ListActiveByCrew(_ context.Context, crewID string) ([]domain.Ticket, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.Store.Tickets {
		if t.CrewID == crewID && t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThreadID < out[j].ThreadID })
	return out, nil
}

func (f TicketRepo) UpdateStatus(_ context.Context, id string, status domain.TicketStatus, updatedBy string, at time.Time) (*domain.Ticket, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	t, ok := f.Store.Tickets[id]
	if !ok {
		return nil, nil
	}
	t.Status = status
	t.UpdatedBy = updatedBy
	t.UpdatedAt = at
	f.Store.Tickets[id] = t
	return &t, nil
}

func (f TicketRepo) SoftDelete(_ context.Context, id, updatedBy string, at time.Time) (*domain.Ticket, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	t, ok := f.Store.Tickets[id]
	if !ok || t.DeletedAt != nil {
		return nil, nil
	}
	t.DeletedAt = &at
	t.UpdatedAt = at
	t.UpdatedBy = updatedBy
	f.Store.Tickets[id] = t
	return &t, nil
}

type CrewRepo struct{ Store *Store }

func (f CrewRepo) Create(_ context.Context, c *domain.Crew) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	if _, ok := f.Store.Crews[c.ID]; ok {
		return fmt.Errorf("duplicate crew %s", c.ID)
	}
	c.CreatedAt = time.Now()
	f.Store.Crews[c.ID] = *c
	return nil
}

func (f CrewRepo) Update(_ context.Context, c *domain.Crew) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	existing, ok := f.Store.Crews[c.ID]
	if !ok || existing.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	f.Store.Crews[c.ID] = *c
	return nil
}

func (f CrewRepo) GetByID(_ context.Context, id string, includeDeleted bool) (*domain.Crew, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	c, ok := f.Store.Crews[id]
	if !ok || (!includeDeleted && c.DeletedAt != nil) {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (f CrewRepo) ListByOrganization(_ context.Context, orgID string) ([]domain.Crew, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	var out []domain.Crew
	for _, c := range f.Store.Crews {
		if c.OrganizationID == orgID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f CrewRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	c, ok := f.Store.Crews[id]
	if !ok || c.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	c.DeletedAt = &at
	f.Store.Crews[id] = c
	return nil
}

type TeamRepo struct{ Store *Store }

func (f TeamRepo) Create(_ context.Context, t *domain.Team) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	if _, ok := f.Store.Teams[t.ID]; ok {
		return fmt.Errorf("duplicate team %s", t.ID)
	}
	f.Store.Teams[t.ID] = *t
	return nil
}

func (f TeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	t, ok := f.Store.Teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (f TeamRepo) ListTags(_ context.Context, teamID string) ([]domain.TeamTag, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	return append([]domain.TeamTag(nil), f.Store.Tags[teamID]...), nil
}

func (f TeamRepo) UpsertTag(_ context.Context, tag *domain.TeamTag) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	list := f.Store.Tags[tag.TeamID]
	for i := range list {
		if list[i].Name == tag.Name {
			list[i] = *tag
			return nil
		}
	}
	f.Store.Tags[tag.TeamID] = append(list, *tag)
	return nil
}

type MemberRepo struct{ Store *Store }

func (f MemberRepo) Get(_ context.Context, crewID, identityID string) (*domain.CrewMember, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	m, ok := f.Store.Members[MemberKey{crewID, identityID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func (f MemberRepo) Insert(_ context.Context, m *domain.CrewMember) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	key := MemberKey{m.CrewID, m.IdentityID}
	if _, ok := f.Store.Members[key]; ok {
		return fmt.Errorf("duplicate member %v", key)
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	f.Store.Members[key] = *m
	return nil
}

func (f MemberRepo) Update(_ context.Context, crewID, identityID string, patch domain.CrewMemberPatch) (*domain.CrewMember, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	key := MemberKey{crewID, identityID}
	m, ok := f.Store.Members[key]
	if !ok {
		return nil, nil
	}
	if patch.Access != nil {
		m.Access = *patch.Access
	}
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Icon != nil {
		m.Icon = *patch.Icon
	}
	f.Store.Members[key] = m
	return &m, nil
}

func (f MemberRepo) Delete(_ context.Context, crewID, identityID string) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	delete(f.Store.Members, MemberKey{crewID, identityID})
	return nil
}

func (f MemberRepo) ListByCrew(_ context.Context, crewID string) ([]domain.CrewMember, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	var out []domain.CrewMember
	for _, m := range f.Store.Members {
		if m.CrewID == crewID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Access < out[j].Access })
	return out, nil
}

func (f MemberRepo) ListByIdentity(_ context.Context, orgID, identityID string) ([]domain.CrewMember, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	var out []domain.CrewMember
	for _, m := range f.Store.Members {
		if m.OrganizationID == orgID && m.IdentityID == identityID {
			out = append(out, m)
		}
	}
	return out, nil
}

type HistoryRepo struct{ Store *Store }

func (f HistoryRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	if f.Store.HistoryErr != nil {
		return f.Store.HistoryErr
	}
	h.ID = fmt.Sprintf("h-%d", len(f.Store.History)+1)
	h.CreatedAt = time.Now()
	f.Store.History = append(f.Store.History, *h)
	return nil
}

func (f HistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	f.Store.Mu.Lock()
	defer f.Store.Mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range f.Store.History {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}
