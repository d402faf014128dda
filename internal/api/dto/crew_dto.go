package dto

import (
	"time"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
)

// RegisterTeamRequest payload.
type RegisterTeamRequest struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	ForumID        string `json:"forum_id"`
	RoleID         string `json:"role_id"`
}

// TeamTagRequest maps a canonical tag name to a forum label.
type TeamTagRequest struct {
	Name       string         `json:"name"`
	ExternalID string         `json:"external_id"`
	Kind       domain.TagKind `json:"kind"`
}

// SetTeamTagsRequest payload for PUT /teams/:team/tags.
type SetTeamTagsRequest struct {
	Tags []TeamTagRequest `json:"tags"`
}

// TeamResponse describes a team.
type TeamResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	ForumID        string `json:"forum_id"`
	RoleID         string `json:"role_id"`
}

// TeamTagResponse describes a tag template.
type TeamTagResponse struct {
	Name       string         `json:"name"`
	ExternalID string         `json:"external_id"`
	Kind       domain.TagKind `json:"kind"`
}

// RegisterCrewRequest payload.
type RegisterCrewRequest struct {
	ID            string `json:"id"`
	TeamID        string `json:"team_id"`
	Name          string `json:"name"`
	ShortName     string `json:"short_name"`
	RoleID        string `json:"role_id"`
	IsSecureOnly  bool   `json:"is_secure_only"`
	HasMovePrompt bool   `json:"has_move_prompt"`
}

// UpdateCrewRequest is a partial update; absent fields are left alone.
type UpdateCrewRequest struct {
	Name          *string `json:"name"`
	ShortName     *string `json:"short_name"`
	RoleID        *string `json:"role_id"`
	IsSecureOnly  *bool   `json:"is_secure_only"`
	HasMovePrompt *bool   `json:"has_move_prompt"`
}

// CrewResponse describes a crew.
type CrewResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	TeamID         string     `json:"team_id"`
	Name           string     `json:"name"`
	ShortName      string     `json:"short_name"`
	RoleID         string     `json:"role_id"`
	IsSecureOnly   bool       `json:"is_secure_only"`
	HasMovePrompt  bool       `json:"has_move_prompt"`
	CreatedAt      time.Time  `json:"created_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}
