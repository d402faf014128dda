package dto

import "time"

// RegisterMemberRequest payload. IdentityID defaults to the caller and
// Access to "member".
type RegisterMemberRequest struct {
	IdentityID string `json:"identity_id"`
	Access     string `json:"access"`
}

// UpdateMemberRequest is the administrative partial update.
type UpdateMemberRequest struct {
	Access *string `json:"access"`
	Name   *string `json:"name"`
	Icon   *string `json:"icon"`
}

// MemberResponse describes a crew membership.
type MemberResponse struct {
	CrewID     string    `json:"crew_id"`
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name"`
	Icon       string    `json:"icon"`
	Access     string    `json:"access"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RegisterMemberResponse reports whether an existing membership was upgraded.
type RegisterMemberResponse struct {
	Member   MemberResponse `json:"member"`
	Upgraded bool           `json:"upgraded"`
}

// AuthResponse carries an issued bearer token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
