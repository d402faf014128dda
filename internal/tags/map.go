package tags

import (
	"sort"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// Map is an immutable view of one team's tag templates.
type Map struct {
	byKey      map[key]string
	byExternal map[string]domain.TeamTag
	defaults   []string
}

type key struct {
	kind domain.TagKind
	name string
}

// NewMap indexes templates by kind and name and by external id.
func NewMap(templates []domain.TeamTag) Map {
	m := Map{
		byKey:      make(map[key]string, len(templates)),
		byExternal: make(map[string]domain.TeamTag, len(templates)),
	}
	for _, tag := range templates {
		m.byKey[key{tag.Kind, tag.Name}] = tag.ExternalID
		m.byExternal[tag.ExternalID] = tag
		if tag.Kind == domain.TagKindDefault {
			m.defaults = append(m.defaults, tag.ExternalID)
		}
	}
	sort.Strings(m.defaults)
	return m
}

// Lifecycle returns the label id of a lifecycle state.
func (m Map) Lifecycle(status domain.TicketStatus) (string, bool) {
	id, ok := m.byKey[key{domain.TagKindLifecycle, string(status)}]
	return id, ok
}

// Crew returns the label id of a crew short code.
func (m Map) Crew(shortName string) (string, bool) {
	if shortName == "" {
		return "", false
	}
	id, ok := m.byKey[key{domain.TagKindCrew, shortName}]
	return id, ok
}

// Defaults returns the default label ids in a stable order.
func (m Map) Defaults() []string {
	return append([]string(nil), m.defaults...)
}

// LifecycleIDs maps each given state to its label id, skipping unmapped states.
func (m Map) LifecycleIDs(statuses []domain.TicketStatus) []string {
	ids := make([]string, 0, len(statuses))
	for _, status := range statuses {
		if id, ok := m.Lifecycle(status); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// StatusOf returns the lifecycle state a label id stands for.
func (m Map) StatusOf(externalID string) (domain.TicketStatus, bool) {
	tag, ok := m.byExternal[externalID]
	if !ok || tag.Kind != domain.TagKindLifecycle {
		return "", false
	}
	status := domain.TicketStatus(tag.Name)
	return status, status.Valid()
}
