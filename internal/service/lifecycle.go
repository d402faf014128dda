package service

import (
	"strings"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
	apperrors "github.com/spec-kit/crew-ticket-service/pkg/util/errorutil"
)

// transitionProps describes how entering a state is announced and which
// lifecycle tags it displaces.
type transitionProps struct {
	Title       string
	Action      string
	Color       string
	TagsRemoved []domain.TicketStatus
}

var transitions = map[domain.TicketStatus]transitionProps{
	domain.TicketStatusTriage: {
		Title:  "Back to Triage",
		Action: "returned to triage",
		Color:  "DarkGold",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusAccepted,
			domain.TicketStatusDeclined,
			domain.TicketStatusAbandoned,
			domain.TicketStatusInProgress,
			domain.TicketStatusRepeatable,
			domain.TicketStatusDone,
			domain.TicketStatusMoved,
		},
	},
	domain.TicketStatusAccepted: {
		Title:  "Ticket Accepted",
		Action: "accepted",
		Color:  "DarkGreen",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusTriage,
			domain.TicketStatusDeclined,
			domain.TicketStatusAbandoned,
			domain.TicketStatusInProgress,
			domain.TicketStatusRepeatable,
			domain.TicketStatusMoved,
		},
	},
	domain.TicketStatusDeclined: {
		Title:  "Ticket Declined",
		Action: "declined",
		Color:  "DarkRed",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusTriage,
			domain.TicketStatusAccepted,
			domain.TicketStatusAbandoned,
			domain.TicketStatusDone,
			domain.TicketStatusMoved,
		},
	},
	domain.TicketStatusAbandoned: {
		Title:  "Ticket Abandoned",
		Action: "closed",
		Color:  "LightGrey",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusDone,
			domain.TicketStatusDeclined,
			domain.TicketStatusMoved,
		},
	},
	domain.TicketStatusDone: {
		Title:  "Ticket Done",
		Action: "completed",
		Color:  "DarkGreen",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusInProgress,
			domain.TicketStatusRepeatable,
			domain.TicketStatusAbandoned,
			domain.TicketStatusDeclined,
			domain.TicketStatusMoved,
		},
	},
	domain.TicketStatusInProgress: {
		Title:  "In Progress",
		Action: "started",
		Color:  "DarkGold",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusRepeatable,
			domain.TicketStatusDone,
			domain.TicketStatusAbandoned,
			domain.TicketStatusMoved,
		},
	},
	domain.TicketStatusRepeatable: {
		Title:  "Repeatable Ticket / Chore",
		Action: "marked repeatable",
		Color:  "Aqua",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusInProgress,
			domain.TicketStatusDone,
			domain.TicketStatusAbandoned,
			domain.TicketStatusMoved,
		},
	},
	domain.TicketStatusMoved: {
		Title:  "Moved",
		Action: "moved",
		Color:  "Aqua",
		TagsRemoved: []domain.TicketStatus{
			domain.TicketStatusTriage,
			domain.TicketStatusAccepted,
			domain.TicketStatusDeclined,
			domain.TicketStatusInProgress,
			domain.TicketStatusDone,
			domain.TicketStatusAbandoned,
		},
	},
}

// Action is a named user command that drives a transition.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionActive  Action = "active"
	ActionRepeat  Action = "repeat"
	ActionDone    Action = "done"
	ActionClose   Action = "close"
)

var actionTargets = map[Action]domain.TicketStatus{
	ActionAccept:  domain.TicketStatusAccepted,
	ActionDecline: domain.TicketStatusDeclined,
	ActionActive:  domain.TicketStatusInProgress,
	ActionRepeat:  domain.TicketStatusRepeatable,
	ActionDone:    domain.TicketStatusDone,
	ActionClose:   domain.TicketStatusAbandoned,
}

// TargetForAction maps an action name to the state it leads to. MOVED has
// no action and is only reachable through Move.
func TargetForAction(name string) (domain.TicketStatus, error) {
	target, ok := actionTargets[Action(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return "", apperrors.NewValidationError("Unknown ticket action", map[string]any{"action": name})
	}
	return target, nil
}

// notifiesCreatorDirectly lists the states that also reach the creator by direct message.
func notifiesCreatorDirectly(status domain.TicketStatus) bool {
	switch status {
	case domain.TicketStatusDone, domain.TicketStatusAccepted, domain.TicketStatusDeclined, domain.TicketStatusInProgress:
		return true
	}
	return false
}

// nextTags computes (current \ removed) ∪ {added}, keeping order and dropping duplicates.
func nextTags(current, removed []string, added string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(current)+1)
	seen := make(map[string]struct{}, len(current)+1)
	for _, id := range current {
		if _, ok := drop[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if added != "" {
		if _, ok := seen[added]; !ok {
			out = append(out, added)
		}
	}
	return out
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
