package dto

// MemberDepartedEvent is delivered when an identity leaves an organization.
type MemberDepartedEvent struct {
	OrganizationID string `json:"organization_id"`
	IdentityID     string `json:"identity_id"`
}

// ThreadUpdatedEvent is delivered when the labels applied to a thread change.
type ThreadUpdatedEvent struct {
	ThreadID     string   `json:"thread_id"`
	PreviousTags []string `json:"previous_tags"`
	CurrentTags  []string `json:"current_tags"`
}

// ThreadCreatedEvent is delivered when a forum thread is opened.
type ThreadCreatedEvent struct {
	ThreadID string `json:"thread_id"`
}
