package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/crew-ticket-service/internal/gateway"
)

func userMention(id string) string    { return "<@" + id + ">" }
func roleMention(id string) string    { return "<@&" + id + ">" }
func channelMention(id string) string { return "<#" + id + ">" }

func withArticle(word string) string {
	if word != "" && strings.ContainsRune("aeiouAEIOU", rune(word[0])) {
		return "an " + word
	}
	return "a " + word
}

func newTicketContent(content, createdBy, roleID string) string {
	return fmt.Sprintf("## New Ticket\n%s\n\nRequested by %s for %s", content, userMention(createdBy), roleMention(roleID))
}

func triagePrompt(createdBy, roleID string) gateway.Embed {
	return gateway.Embed{
		Title: "New Ticket",
		Color: "DarkGold",
		Description: fmt.Sprintf("Welcome %s! %s will review your ticket shortly. "+
			"Use the buttons below to accept, decline, or close it.", userMention(createdBy), roleMention(roleID)),
	}
}

func incomingRequest(org *gateway.Organization) gateway.Embed {
	return gateway.Embed{
		Title: "Incoming Request from " + org.Name,
		Color: "DarkGreen",
		Description: fmt.Sprintf("This ticket was moved from %s. The ticket author might not have joined "+
			"the organization yet so please be patient.", org.Name),
		ThumbnailURL: org.IconURL,
	}
}

func quote(reason string) string {
	lines := strings.Split(reason, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func transitionNotice(props transitionProps, threadID string, actor *gateway.Identity, reason string) gateway.Embed {
	description := fmt.Sprintf("Your ticket %s was %s by %s", channelMention(threadID), props.Action, actor.DisplayName)
	if strings.TrimSpace(reason) != "" {
		description += " for the following reason:\n\n" + quote(reason)
	}
	return gateway.Embed{
		Title:        props.Title,
		Color:        props.Color,
		Description:  description,
		ThumbnailURL: actor.AvatarURL,
	}
}

func closureNotice(actor *gateway.Identity) gateway.Embed {
	return gateway.Embed{
		Title:        "Ticket Closed",
		Color:        "DarkRed",
		Description:  "Your ticket was closed by " + actor.DisplayName,
		ThumbnailURL: actor.AvatarURL,
	}
}
