// Package gateway is the boundary to the identity and channel platform that
// hosts organizations, crews, and ticket threads.
package gateway

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the platform does not know the requested object.
	ErrNotFound = errors.New("gateway: not found")
	// ErrRoleNotHeld is returned by RevokeRole when the identity lacks the role.
	ErrRoleNotHeld = errors.New("gateway: role not held")
)

// Gateway resolves platform objects and performs messaging and role side effects.
type Gateway interface {
	FetchOrganization(ctx context.Context, organizationID string) (*Organization, error)
	FetchIdentity(ctx context.Context, organizationID, identityID string) (*Identity, error)
	FetchChannel(ctx context.Context, organizationID, channelID string) (*Channel, error)
	CanView(ctx context.Context, organizationID, channelID, identityID string) (bool, error)
	FetchThread(ctx context.Context, forumID, threadID string) (*Thread, error)
	CreateThreadWithMessage(ctx context.Context, forumID string, draft ThreadDraft, tags []string) (string, error)
	EditMessage(ctx context.Context, threadID, messageID string, payload MessagePayload) error
	SendMessage(ctx context.Context, channelID string, payload MessagePayload) error
	SendDirectMessage(ctx context.Context, identityID string, payload MessagePayload) error
	GrantRole(ctx context.Context, organizationID, identityID, roleID string) error
	RevokeRole(ctx context.Context, organizationID, identityID, roleID string) error
	SetThreadTags(ctx context.Context, threadID string, tags []string) error
	ArchiveAndLock(ctx context.Context, threadID string) error
}

// Organization is the top level tenant.
type Organization struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

// Identity is a platform account as seen inside one organization.
type Identity struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	IsAdmin     bool     `json:"is_admin"`
	RoleIDs     []string `json:"role_ids,omitempty"`
}

// HasRole reports whether the identity currently holds roleID.
func (i *Identity) HasRole(roleID string) bool {
	for _, id := range i.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Channel describes a message channel.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	IsText    bool   `json:"is_text"`
	IsPrivate bool   `json:"is_private"`
}

// Thread is a forum thread that carries one ticket.
type Thread struct {
	ID               string   `json:"id"`
	ForumID          string   `json:"forum_id"`
	StarterMessageID string   `json:"starter_message_id"`
	AppliedTags      []string `json:"applied_tags"`
	Archived         bool     `json:"archived"`
	Locked           bool     `json:"locked"`
}

// Embed is a titled block rendered under a message.
type Embed struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Color        string `json:"color,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// ControlKind distinguishes buttons from select menus.
type ControlKind string

const (
	ControlButton ControlKind = "button"
	ControlSelect ControlKind = "select"
)

// ControlOption is one entry of a select control.
type ControlOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Control is an interactive affordance. ID routes the interaction back to
// the command surface, e.g. "ticket/action/accept/<thread>".
type Control struct {
	Kind        ControlKind     `json:"kind"`
	ID          string          `json:"id"`
	Label       string          `json:"label,omitempty"`
	Style       string          `json:"style,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Disabled    bool            `json:"disabled"`
	Options     []ControlOption `json:"options,omitempty"`
}

// ControlRow is a horizontal group of controls.
type ControlRow struct {
	Controls []Control `json:"controls"`
}

// MessagePayload is the body of a sent or edited message. A nil Controls
// leaves existing controls untouched on edit; an empty slice clears them.
type MessagePayload struct {
	Content      string       `json:"content,omitempty"`
	Embeds       []Embed      `json:"embeds,omitempty"`
	MentionUsers []string     `json:"mention_users,omitempty"`
	MentionRoles []string     `json:"mention_roles,omitempty"`
	Controls     []ControlRow `json:"controls"`
}

// ThreadDraft is a new thread with its starter message.
type ThreadDraft struct {
	Name    string         `json:"name"`
	Message MessagePayload `json:"message"`
}
