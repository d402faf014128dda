package servicetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/crew-ticket-service/internal/gateway"
)

// SentMessage is a message captured by Gateway.
type SentMessage struct {
	Target  string
	Payload gateway.MessagePayload
}

// CreatedThread is a thread opened through Gateway.
type CreatedThread struct {
	Forum string
	Draft gateway.ThreadDraft
	Tags  []string
}

// Gateway records every call. The *Err fields make the matching call fail.
type Gateway struct {
	mu         sync.Mutex
	Orgs       map[string]*gateway.Organization
	Identities map[string]map[string]*gateway.Identity
	Channels   map[string]*gateway.Channel
	Hidden     map[string]bool
	Threads    map[string]*gateway.Thread
	nextThread int

	Created []CreatedThread
	Sent    []SentMessage
	DMs     []SentMessage
	Edits   []SentMessage
	Granted []string
	Revoked []string

	TagErr     error
	DMErr      error
	ArchiveErr error
	GrantErr   error
	RevokeErr  error
}

var _ gateway.Gateway = (*Gateway)(nil)

// NewGateway returns an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		Orgs:       map[string]*gateway.Organization{},
		Identities: map[string]map[string]*gateway.Identity{},
		Channels:   map[string]*gateway.Channel{},
		Hidden:     map[string]bool{},
		Threads:    map[string]*gateway.Thread{},
	}
}

// AddIdentity makes identity a member of orgID.
func (g *Gateway) AddIdentity(orgID string, identity gateway.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Identities[orgID] == nil {
		g.Identities[orgID] = map[string]*gateway.Identity{}
	}
	g.Identities[orgID][identity.ID] = &identity
}

// Hide denies identityID the view permission on channelID.
func (g *Gateway) Hide(channelID, identityID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Hidden[channelID+"|"+identityID] = true
}

func (g *Gateway) Identity(orgID, id string) *gateway.Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Identities[orgID][id]
}

func (g *Gateway) Thread(id string) gateway.Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *g.Threads[id]
}

func (g *Gateway) SetAppliedTags(id string, applied []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Threads[id].AppliedTags = append([]string(nil), applied...)
}

// SentTo returns the channel messages sent to target.
func (g *Gateway) SentTo(target string) []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []SentMessage
	for _, m := range g.Sent {
		if m.Target == target {
			out = append(out, m)
		}
	}
	return out
}

func (g *Gateway) FetchOrganization(_ context.Context, id string) (*gateway.Organization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	org, ok := g.Orgs[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	copied := *org
	return &copied, nil
}

func (g *Gateway) FetchIdentity(_ context.Context, orgID, id string) (*gateway.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	identity, ok := g.Identities[orgID][id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	copied := *identity
	copied.RoleIDs = append([]string(nil), identity.RoleIDs...)
	return &copied, nil
}

func (g *Gateway) FetchChannel(_ context.Context, _ string, id string) (*gateway.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.Channels[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	copied := *ch
	return &copied, nil
}

func (g *Gateway) CanView(_ context.Context, _ string, channelID, identityID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.Hidden[channelID+"|"+identityID], nil
}

func (g *Gateway) FetchThread(_ context.Context, _ string, id string) (*gateway.Thread, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	th, ok := g.Threads[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	copied := *th
	copied.AppliedTags = append([]string(nil), th.AppliedTags...)
	return &copied, nil
}

func (g *Gateway) CreateThreadWithMessage(_ context.Context, forumID string, draft gateway.ThreadDraft, applied []string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextThread++
	id := fmt.Sprintf("T%d", g.nextThread)
	g.Threads[id] = &gateway.Thread{
		ID:               id,
		ForumID:          forumID,
		StarterMessageID: "m-" + id,
		AppliedTags:      append([]string(nil), applied...),
	}
	g.Created = append(g.Created, CreatedThread{Forum: forumID, Draft: draft, Tags: append([]string(nil), applied...)})
	return id, nil
}

func (g *Gateway) EditMessage(_ context.Context, threadID, messageID string, payload gateway.MessagePayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Edits = append(g.Edits, SentMessage{Target: threadID + "/" + messageID, Payload: payload})
	return nil
}

func (g *Gateway) SendMessage(_ context.Context, channelID string, payload gateway.MessagePayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Sent = append(g.Sent, SentMessage{Target: channelID, Payload: payload})
	return nil
}

func (g *Gateway) SendDirectMessage(_ context.Context, identityID string, payload gateway.MessagePayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DMErr != nil {
		return g.DMErr
	}
	g.DMs = append(g.DMs, SentMessage{Target: identityID, Payload: payload})
	return nil
}

func (g *Gateway) GrantRole(_ context.Context, orgID, identityID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.GrantErr != nil {
		return g.GrantErr
	}
	g.Granted = append(g.Granted, identityID+"/"+roleID)
	if identity, ok := g.Identities[orgID][identityID]; ok {
		identity.RoleIDs = append(identity.RoleIDs, roleID)
	}
	return nil
}

func (g *Gateway) RevokeRole(_ context.Context, orgID, identityID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RevokeErr != nil {
		return g.RevokeErr
	}
	g.Revoked = append(g.Revoked, identityID+"/"+roleID)
	if identity, ok := g.Identities[orgID][identityID]; ok {
		kept := identity.RoleIDs[:0]
		for _, id := range identity.RoleIDs {
			if id != roleID {
				kept = append(kept, id)
			}
		}
		identity.RoleIDs = kept
	}
	return nil
}

func (g *Gateway) SetThreadTags(_ context.Context, threadID string, applied []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.TagErr != nil {
		return g.TagErr
	}
	th, ok := g.Threads[threadID]
	if !ok {
		return gateway.ErrNotFound
	}
	th.AppliedTags = append([]string(nil), applied...)
	return nil
}

func (g *Gateway) ArchiveAndLock(_ context.Context, threadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ArchiveErr != nil {
		return g.ArchiveErr
	}
	th, ok := g.Threads[threadID]
	if !ok {
		return gateway.ErrNotFound
	}
	th.Archived = true
	th.Locked = true
	return nil
}
