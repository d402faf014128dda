package service

import (
	"fmt"

	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/gateway"
)

type triageDisabled struct {
	accept, decline, close bool
}

type activeDisabled struct {
	active, repeat, done, close bool
}

func actionControlID(action Action, threadID string) string {
	return fmt.Sprintf("ticket/action/%s/%s", action, threadID)
}

func button(id, label, style string, disabled bool) gateway.Control {
	return gateway.Control{Kind: gateway.ControlButton, ID: id, Label: label, Style: style, Disabled: disabled}
}

// Decline opens a reason form first, so its control routes separately.
func triageControls(threadID string, disabled triageDisabled) gateway.ControlRow {
	return gateway.ControlRow{Controls: []gateway.Control{
		button("ticket/reqdecline/"+threadID, "Decline", "danger", disabled.decline),
		button(actionControlID(ActionAccept, threadID), "Accept", "success", disabled.accept),
		button(actionControlID(ActionClose, threadID), "Close", "secondary", disabled.close),
	}}
}

func activeControls(threadID string, disabled activeDisabled) gateway.ControlRow {
	return gateway.ControlRow{Controls: []gateway.Control{
		button(actionControlID(ActionActive, threadID), "In Progress", "primary", disabled.active),
		button(actionControlID(ActionRepeat, threadID), "Repeatable", "secondary", disabled.repeat),
		button(actionControlID(ActionDone, threadID), "Done", "success", disabled.done),
		button(actionControlID(ActionClose, threadID), "Close", "danger", disabled.close),
	}}
}

// controlsFor returns the affordances shown on a ticket in status. Terminal
// states get an empty, non-nil slice so that existing controls are cleared.
func controlsFor(status domain.TicketStatus, threadID string) []gateway.ControlRow {
	switch status {
	case domain.TicketStatusTriage:
		return []gateway.ControlRow{triageControls(threadID, triageDisabled{})}
	case domain.TicketStatusAccepted:
		return []gateway.ControlRow{activeControls(threadID, activeDisabled{})}
	case domain.TicketStatusInProgress:
		return []gateway.ControlRow{activeControls(threadID, activeDisabled{active: true})}
	case domain.TicketStatusRepeatable:
		return []gateway.ControlRow{activeControls(threadID, activeDisabled{active: true, repeat: true})}
	default:
		return []gateway.ControlRow{}
	}
}

// movePrompt lists the crews a ticket may be moved to.
func movePrompt(threadID string, crews []domain.Crew, exclude string) gateway.ControlRow {
	sel := gateway.Control{
		Kind:        gateway.ControlSelect,
		ID:          "ticket/move/" + threadID,
		Placeholder: "Select a crew",
	}
	for _, crew := range crews {
		if crew.ID == exclude || crew.Deleted() {
			continue
		}
		sel.Options = append(sel.Options, gateway.ControlOption{Label: crew.Name, Value: crew.ID})
	}
	if len(sel.Options) == 0 {
		sel.Options = []gateway.ControlOption{{Label: "placeholder", Value: "placeholder"}}
		sel.Placeholder = "No crews available"
		sel.Disabled = true
	}
	return gateway.ControlRow{Controls: []gateway.Control{sel}}
}
