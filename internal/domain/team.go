package domain

import "time"

// Team groups crews under a category and owns the forum their tickets live in.
type Team struct {
	ID             string
	OrganizationID string
	Name           string
	ForumID        string
	RoleID         string
	CreatedAt      time.Time
}

// TagKind classifies a team tag template.
type TagKind string

const (
	TagKindLifecycle TagKind = "LIFECYCLE"
	TagKindDefault   TagKind = "DEFAULT"
	TagKindCrew      TagKind = "CREW"
)

// Valid reports whether k is a known tag kind.
func (k TagKind) Valid() bool {
	return k == TagKindLifecycle || k == TagKindDefault || k == TagKindCrew
}

// TeamTag maps a canonical tag name to the external label id on the team forum.
// Lifecycle tags are named after a TicketStatus, crew tags after a crew short code.
type TeamTag struct {
	TeamID     string
	Name       string
	ExternalID string
	Kind       TagKind
	CreatedAt  time.Time
}
