package domain

import "time"

// Crew is a sub-team keyed by its channel handle.
type Crew struct {
	ID             string
	OrganizationID string
	TeamID         string
	Name           string
	ShortName      string
	RoleID         string
	IsSecureOnly   bool
	HasMovePrompt  bool
	CreatedAt      time.Time
	DeletedAt      *time.Time
}

// Deleted reports whether the crew has been soft deleted.
func (c *Crew) Deleted() bool {
	return c.DeletedAt != nil
}
